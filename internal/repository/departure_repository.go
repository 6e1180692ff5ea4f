package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
)

// DepartureFilter narrows the public departure listing.  Empty fields match
// everything; Origin and Destination compare case-insensitively.
type DepartureFilter struct {
	Origin      string
	Destination string
	Date        *time.Time
	Limit       int
}

const defaultDepartureLimit = 100

// ListDepartures returns scheduled future departures matching f, ordered
// by departure time.
func (s *SQLStore) ListDepartures(ctx context.Context, f DepartureFilter) ([]model.Departure, error) {
	var (
		conds = []string{"status = 'SCHEDULED'", "departs_at > ?"}
		args  = []any{time.Now().UTC()}
	)
	if f.Origin != "" {
		conds = append(conds, "LOWER(origin) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Origin)))
	}
	if f.Destination != "" {
		conds = append(conds, "LOWER(destination) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Destination)))
	}
	if f.Date != nil {
		d := f.Date.UTC()
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		conds = append(conds, "departs_at >= ?", "departs_at < ?")
		args = append(args, start, start.Add(24*time.Hour))
	}
	limit := f.Limit
	if limit <= 0 || limit > defaultDepartureLimit {
		limit = defaultDepartureLimit
	}
	args = append(args, limit)

	query := `SELECT ` + departureColumns + ` FROM departures WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY departs_at, id LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Departure, 0)
	for rows.Next() {
		d, err := scanDeparture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
