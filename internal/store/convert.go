package store

import (
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

func dateArg(d civil.Date) any {
	if !d.IsValid() {
		return nil
	}
	return d.String()
}

func parseDate(ns sql.NullString) (civil.Date, error) {
	if !ns.Valid || ns.String == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(ns.String)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parse date %q: %w", ns.String, err)
	}
	return d, nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
