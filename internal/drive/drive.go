package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"

	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
)

// Client hosts receipt images on Google Drive. Each upload is granted
// anyone-with-link read access so the sheet can carry a plain URL.
type Client struct {
	svc      *gdrive.Service
	folderID string
}

var _ ports.ReceiptStorage = (*Client)(nil)

// NewFromEnv creates a Drive client from environment variables.
// Optional: RECEIPT_FOLDER_ID (uploads land in the Drive root when unset).
// Credentials come from the same service-account variables as the Sheets
// client.
func NewFromEnv(ctx context.Context) (*Client, error) {
	credentials, err := serviceAccountJSON()
	if err != nil {
		return nil, err
	}
	svc, err := gdrive.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gdrive.DriveFileScope))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{
		svc:      svc,
		folderID: strings.TrimSpace(os.Getenv("RECEIPT_FOLDER_ID")),
	}, nil
}

func serviceAccountJSON() ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if inline != "" {
		return []byte(inline), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// Upload stores the bytes and returns a public view URL. The upload is
// independent of whatever record later references the URL; if that write
// fails, the file stays behind as an orphan, which is acceptable.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if c.svc == nil {
		return "", errors.New("drive service not initialized")
	}

	meta := &gdrive.File{Name: name}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}

	file, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	_, err = c.svc.Permissions.Create(file.Id, &gdrive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("grant read permission for %s: %w", file.Id, err)
	}

	slog.InfoContext(ctx, "Receipt uploaded", "file_id", file.Id, "name", name, "size", len(data))
	return file.WebViewLink, nil
}
