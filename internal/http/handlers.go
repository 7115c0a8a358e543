package http

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	"github.com/merosu1777-dotcom/gas-management-app/internal/services"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
)

const (
	userCookie      = "ledger_user"
	maxReceiptBytes = 10 << 20
)

// View models keep formatting out of the templates.
type (
	shareView struct {
		User     string
		Distance string
		Paid     string
		Share    string
		Net      string
		Owes     bool
	}

	recordView struct {
		ID       string
		Date     string
		User     string
		OdoStart string
		OdoEnd   string
		Distance string
		Fuel     string
		Price    string
		Receipt  string

		// Raw values for prefilled edit forms.
		RawOdoStart string
		RawOdoEnd   string
		RawFuel     string
		RawPrice    string
	}

	monthView struct {
		Key           string
		Discontinuous bool
		TotalDistance string
		TotalPaid     string
		CostPerKm     string
		Shares        []shareView
	}
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	current := s.currentUser(r)

	reports, err := s.ledger.Reports(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Reports error", "error", err)
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}

	var mine []core.Record
	if current != "" {
		if mine, err = s.ledger.UserRecords(r.Context(), current); err != nil {
			slog.ErrorContext(r.Context(), "User records error", "error", err, "user", current)
		}
	}

	data := struct {
		Users       []string
		CurrentUser string
		Today       string
		Reports     []monthView
		MyRecords   []recordView
	}{
		Users:       s.users,
		CurrentUser: current,
		Today:       time.Now().Format(core.DateLayout),
	}
	for _, rep := range reports {
		data.Reports = append(data.Reports, monthToView(rep))
	}
	for _, rec := range mine {
		data.MyRecords = append(data.MyRecords, recordToView(rec))
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSelectUser stores the chosen identity in a cookie. The choice scopes
// the edit/delete view; it is a convenience, not authentication.
func (s *Server) handleSelectUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	user := strings.TrimSpace(r.Form.Get("user"))
	if !s.knownUser(user) {
		http.Error(w, "unknown user", http.StatusUnprocessableEntity)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     userCookie,
		Value:    url.QueryEscape(user),
		Path:     "/",
		MaxAge:   int((90 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	in, err := s.parseRecordInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	rec, err := s.ledger.Create(r.Context(), in)
	if err != nil {
		s.writeMutationError(w, r, err, "create")
		return
	}
	slog.InfoContext(r.Context(), "Record created via form", "id", rec.ID, "user", rec.User)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	in, err := s.parseRecordInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		http.Error(w, "missing record id", http.StatusUnprocessableEntity)
		return
	}

	if err := s.ledger.Edit(r.Context(), id, in); err != nil {
		s.writeMutationError(w, r, err, "edit")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		http.Error(w, "missing record id", http.StatusUnprocessableEntity)
		return
	}

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		s.writeMutationError(w, r, err, "delete")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseRecordInput reads the shared record form. Multipart is accepted for
// the optional receipt file; a plain urlencoded post works too.
func (s *Server) parseRecordInput(r *http.Request) (services.RecordInput, error) {
	var in services.RecordInput

	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return in, errors.New("invalid form")
	}

	in.User = sanitizeInput(r.Form.Get("user"))
	if !s.knownUser(in.User) {
		return in, errors.New("unknown user")
	}

	date, err := time.Parse(core.DateLayout, strings.TrimSpace(r.Form.Get("date")))
	if err != nil {
		return in, errors.New("invalid date")
	}
	in.Date = date

	if in.OdoStart, err = parseIntField(r, "odo_start"); err != nil {
		return in, err
	}
	if in.OdoEnd, err = parseIntField(r, "odo_end"); err != nil {
		return in, err
	}
	if in.FuelLiters, err = parseFloatField(r, "fuel"); err != nil {
		return in, err
	}
	if in.PriceYen, err = parseIntField(r, "price"); err != nil {
		return in, err
	}

	in.Receipt = readReceipt(r)
	return in, nil
}

func parseIntField(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.Form.Get(name))
	if v == "" {
		return 0, errors.New("missing " + name)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func parseFloatField(r *http.Request, name string) (float64, error) {
	v := strings.TrimSpace(r.Form.Get(name))
	if v == "" {
		return 0, errors.New("missing " + name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return f, nil
}

// readReceipt pulls the optional receipt file out of a multipart form.
func readReceipt(r *http.Request) *services.ReceiptUpload {
	if r.MultipartForm == nil {
		return nil
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		return nil
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil || len(data) == 0 {
		return nil
	}
	return &services.ReceiptUpload{Filename: header.Filename, Data: data}
}

func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ports.ErrRecordNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case isValidationError(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.ErrorContext(r.Context(), "Record mutation failed", "op", op, "error", err)
		http.Error(w, "ledger write failed, please retry", http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrOdometerOrder) ||
		errors.Is(err, core.ErrNegativeValue) ||
		errors.Is(err, core.ErrEmptyUser) ||
		errors.Is(err, core.ErrZeroDate) ||
		errors.Is(err, core.ErrMissingOdo)
}

func (s *Server) knownUser(name string) bool {
	for _, u := range s.users {
		if u == name {
			return true
		}
	}
	return false
}

func (s *Server) currentUser(r *http.Request) string {
	c, err := r.Cookie(userCookie)
	if err != nil {
		return ""
	}
	user, err := url.QueryUnescape(c.Value)
	if err != nil || !s.knownUser(user) {
		return ""
	}
	return user
}

func monthToView(m core.MonthReport) monthView {
	v := monthView{
		Key:           m.Key(),
		Discontinuous: m.Discontinuous,
		TotalDistance: formatKm(m.TotalDistanceKm),
		TotalPaid:     formatYen(m.TotalPaidYen),
		CostPerKm:     strconv.FormatFloat(m.CostPerKm, 'f', 1, 64) + " 円/km",
	}
	for _, sh := range m.Shares {
		v.Shares = append(v.Shares, shareView{
			User:     sh.User,
			Distance: formatKm(sh.DistanceKm),
			Paid:     formatYen(sh.PaidYen),
			Share:    formatYenFloat(sh.ShareYen),
			Net:      formatYenFloat(sh.NetYen),
			Owes:     sh.NetYen < 0,
		})
	}
	return v
}

func recordToView(r core.Record) recordView {
	v := recordView{
		ID:      r.ID,
		Date:    r.Date.Format(core.DateLayout),
		User:    r.User,
		Receipt: r.ReceiptURL,
	}
	if r.OdoStart.Valid {
		v.OdoStart = formatKm(r.OdoStart.Int64)
		v.RawOdoStart = strconv.FormatInt(r.OdoStart.Int64, 10)
	}
	if r.OdoEnd.Valid {
		v.OdoEnd = formatKm(r.OdoEnd.Int64)
		v.RawOdoEnd = strconv.FormatInt(r.OdoEnd.Int64, 10)
	}
	if r.Distance.Valid {
		v.Distance = formatKm(r.Distance.Int64)
	}
	if r.FuelLiters.Valid {
		v.Fuel = strconv.FormatFloat(r.FuelLiters.Float64, 'f', 2, 64) + " L"
		v.RawFuel = strconv.FormatFloat(r.FuelLiters.Float64, 'f', -1, 64)
	}
	if r.PriceYen.Valid {
		v.Price = formatYen(r.PriceYen.Int64)
		v.RawPrice = strconv.FormatInt(r.PriceYen.Int64, 10)
	}
	return v
}

func formatKm(v int64) string {
	return strconv.FormatInt(v, 10) + " km"
}

// formatYen renders an amount as yen with thousands separators.
func formatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-¥" + s
	}
	return "¥" + s
}

func formatYenFloat(v float64) string {
	return formatYen(int64(math.Round(v)))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
