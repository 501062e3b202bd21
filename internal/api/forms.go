package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snarg/clinic-engine/internal/clinic"
)

// maxFormMemory is the multipart size kept in memory; larger files spill to disk.
const maxFormMemory = 32 << 20

// dateTimeLayouts are tried in order for appointment times. The HTML
// datetime-local control sends the minute-precision form.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

const dateLayout = "2006-01-02"

// ParseDateTime parses s in any accepted layout. Layouts without a zone
// are read as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date-time %q", s)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", s)
	}
	return t, nil
}

// parseForm reads a urlencoded or multipart body. Errors wrap
// clinic.ErrInvalidInput.
func parseForm(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if ct == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return badInput("invalid form body: %v", err)
	}
	return nil
}

func badInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", clinic.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func formString(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// formInt64 reads a required positive integer field.
func formInt64(r *http.Request, name string) (int64, error) {
	v := formString(r, name)
	if v == "" {
		return 0, badInput("%s is required", name)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, badInput("%s must be a positive integer", name)
	}
	return n, nil
}

// formOptionalInt64 reads an optional positive integer field. Empty and
// "null" yield nil.
func formOptionalInt64(r *http.Request, name string) (*int64, error) {
	v := formString(r, name)
	if v == "" || v == "null" {
		return nil, nil
	}
	n, err := formInt64(r, name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func formDateTime(r *http.Request, name string) (time.Time, error) {
	v := formString(r, name)
	if v == "" {
		return time.Time{}, badInput("%s is required", name)
	}
	t, err := ParseDateTime(v)
	if err != nil {
		return time.Time{}, badInput("%s: %v", name, err)
	}
	return t, nil
}

func formOptionalDate(r *http.Request, name string) (*time.Time, error) {
	v := formString(r, name)
	if v == "" {
		return nil, nil
	}
	t, err := ParseDate(v)
	if err != nil {
		return nil, badInput("%s: %v", name, err)
	}
	return &t, nil
}
