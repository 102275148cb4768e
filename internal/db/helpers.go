package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DayBounds returns the half-open [midnight, next midnight) range of the
// calendar day containing t, in t's location.
func DayBounds(t time.Time) (since, until pgtype.Timestamptz) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1)
	return pgtype.Timestamptz{Time: start, Valid: true}, pgtype.Timestamptz{Time: end, Valid: true}
}
