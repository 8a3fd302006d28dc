package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/knjigarna/internal/model"
)

// DefaultReportWindow is the date range used when a request gives none.
const DefaultReportWindow = 30 * 24 * time.Hour

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// queryInt64 parses an optional int64 query parameter; absent means zero.
func queryInt64(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTime(v string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD")
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// dateRange reads the from and to query parameters. Missing bounds default
// to the last DefaultReportWindow.
func dateRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	to = time.Now().UTC()
	if v := q.Get("to"); v != "" {
		if to, err = parseTime(v, true); err != nil {
			return from, to, model.NewValidationError("to", err.Error())
		}
	}
	from = to.Add(-DefaultReportWindow)
	if v := q.Get("from"); v != "" {
		if from, err = parseTime(v, false); err != nil {
			return from, to, model.NewValidationError("from", err.Error())
		}
	}
	if from.After(to) {
		return from, to, model.NewValidationError("from", "must not be after to")
	}
	return from, to, nil
}

// optionalDateRange is like dateRange but leaves absent bounds unset.
func optionalDateRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if from, err = parseTime(v, false); err != nil {
			return from, to, model.NewValidationError("from", err.Error())
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = parseTime(v, true); err != nil {
			return from, to, model.NewValidationError("to", err.Error())
		}
	}
	return from, to, nil
}

func bookFilter(r *http.Request) (model.BookFilter, error) {
	q := r.URL.Query()
	f := model.BookFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Location: q.Get("location"),
	}
	if f.Status != "" && !model.ValidBookStatus(f.Status) {
		return f, model.NewValidationError("status", "must be available, sold or reserved")
	}
	return f, nil
}
