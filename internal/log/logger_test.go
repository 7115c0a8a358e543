package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return New(Config{Level: slog.LevelDebug, Component: component, Handler: handler}), &buf
}

func TestComponentAttributeOnWrapperCalls(t *testing.T) {
	logger, buf := newBufferLogger("settlement")

	logger.Info("report built", "months", 3)

	out := buf.String()
	if !strings.Contains(out, "component=settlement") {
		t.Fatalf("missing component attribute: %s", out)
	}
	if !strings.Contains(out, "months=3") {
		t.Fatalf("missing caller attribute: %s", out)
	}
}

func TestComponentSurvivesSetDefault(t *testing.T) {
	logger, buf := newBufferLogger("gasledger")

	prev := slog.Default()
	SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(prev) })

	// Package-level calls, as made throughout the adapters, must carry
	// the component attribute too.
	slog.InfoContext(context.Background(), "record created", "id", "abc")

	out := buf.String()
	if !strings.Contains(out, "component=gasledger") {
		t.Fatalf("default logger lost component attribute: %s", out)
	}
	if !strings.Contains(out, "id=abc") {
		t.Fatalf("missing caller attribute: %s", out)
	}
}

func TestWithComponentReplacesName(t *testing.T) {
	logger, buf := newBufferLogger("app")

	logger.WithComponent("sheets").Warn("retrying append")

	out := buf.String()
	if !strings.Contains(out, "component=sheets") {
		t.Fatalf("missing replaced component: %s", out)
	}
	if strings.Contains(out, "component=app") {
		t.Fatalf("stale component attribute present: %s", out)
	}
}
