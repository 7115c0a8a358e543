package core

import (
	"fmt"
	"sort"
)

type (
	// UserShare is one user's position inside a month: how far they drove,
	// what they paid at the pump, what their usage says they should have
	// paid, and the resulting net. Positive Net means the group owes the
	// user money; negative means the user owes the group. This sign
	// convention is the financial contract of the whole ledger.
	UserShare struct {
		User       string
		DistanceKm int64
		PaidYen    int64
		ShareYen   float64
		NetYen     float64
	}

	// MonthReport is the settlement for one calendar month.
	MonthReport struct {
		Year  int
		Month int

		// Records holds the month's records in ledger order.
		Records []Record

		// Discontinuous is set when any record in the month starts at an
		// odometer value that does not match the previous record's end.
		// It is a warning, never an error.
		Discontinuous bool

		TotalDistanceKm int64
		TotalPaidYen    int64
		CostPerKm       float64

		// Shares is ordered by user name.
		Shares []UserShare
	}
)

// Key returns the month in "YYYY-MM" form.
func (m MonthReport) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// BuildReports groups normalized records by calendar month and computes the
// settlement for each, most recent month first. Input must already be sorted
// ascending by (date, createdAt), as produced by Normalize.
//
// The continuity check walks the full sorted ledger regardless of user or
// month boundary: the vehicle is shared, so every trip should start where the
// previous one ended. A record whose start differs from the preceding end
// (or whose start is unreadable while a preceding end exists) flags its month.
func BuildReports(records []Record) []MonthReport {
	var ledger []Record
	for _, r := range records {
		if r.Date.IsZero() {
			// Undated rows cannot be assigned to a month.
			continue
		}
		ledger = append(ledger, r)
	}

	byMonth := map[string]*MonthReport{}
	var keys []string
	var prevEnd NullInt
	for _, r := range ledger {
		y, m, _ := r.Date.Date()
		key := fmt.Sprintf("%04d-%02d", y, int(m))
		rep, ok := byMonth[key]
		if !ok {
			rep = &MonthReport{Year: y, Month: int(m)}
			byMonth[key] = rep
			keys = append(keys, key)
		}
		if prevEnd.Valid && (!r.OdoStart.Valid || r.OdoStart.Int64 != prevEnd.Int64) {
			rep.Discontinuous = true
		}
		prevEnd = r.OdoEnd
		rep.Records = append(rep.Records, r)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	out := make([]MonthReport, 0, len(keys))
	for _, key := range keys {
		rep := byMonth[key]
		settleMonth(rep)
		out = append(out, *rep)
	}
	return out
}

// settleMonth fills in the aggregates and per-user shares. Null fields are
// skipped in sums so a malformed cell costs one value, not the month.
func settleMonth(rep *MonthReport) {
	type acc struct {
		distance int64
		paid     int64
	}
	byUser := map[string]*acc{}
	var users []string
	for _, r := range rep.Records {
		a, ok := byUser[r.User]
		if !ok {
			a = &acc{}
			byUser[r.User] = a
			users = append(users, r.User)
		}
		if r.Distance.Valid {
			a.distance += r.Distance.Int64
			rep.TotalDistanceKm += r.Distance.Int64
		}
		if r.PriceYen.Valid {
			a.paid += r.PriceYen.Int64
			rep.TotalPaidYen += r.PriceYen.Int64
		}
	}

	// Guard the zero-distance month: cost per km stays 0 and every share
	// and net settles to paid-vs-zero rather than dividing by zero.
	if rep.TotalDistanceKm > 0 {
		rep.CostPerKm = float64(rep.TotalPaidYen) / float64(rep.TotalDistanceKm)
	}

	sort.Strings(users)
	for _, u := range users {
		a := byUser[u]
		share := float64(a.distance) * rep.CostPerKm
		rep.Shares = append(rep.Shares, UserShare{
			User:       u,
			DistanceKm: a.distance,
			PaidYen:    a.paid,
			ShareYen:   share,
			NetYen:     float64(a.paid) - share,
		})
	}
}
