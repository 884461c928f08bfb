// Package store defines the record store boundary the services aggregate over
// and the adapters that implement it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Errors
var (
	ErrNotFound = errors.New("store: record not found")
	ErrAborted  = errors.New("store: request aborted")
)

// TimeLayout is the record store's timestamp format.
const TimeLayout = "2006-01-02 15:04:05.000Z"

// RecordStore is a collection-based record store shaped after PocketBase.
type RecordStore interface {
	GetList(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error)
	GetFullList(ctx context.Context, collection string, opts ListOptions) ([]Record, error)
	GetOne(ctx context.Context, collection, id string) (Record, error)
	GetFirstListItem(ctx context.Context, collection, filter string) (Record, error)
	Create(ctx context.Context, collection string, data Record) (Record, error)
	Update(ctx context.Context, collection, id string, data Record) (Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// ListOptions narrows and orders a list query.
type ListOptions struct {
	Filter string
	Sort   string
}

// ListResult is one page of records.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// APIError is a non-2xx response from a remote record store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == 404 {
		return ErrNotFound
	}
	return nil
}

// IsAbort reports whether err comes from a cancelled request rather than a
// genuine failure. Callers treat aborts as silent no-ops.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrAborted) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// Record is an opaque JSON object from a collection.
type Record map[string]any

// ID returns the record id.
func (r Record) ID() string { return r.String("id") }

// String returns the field as a string, or "" when absent.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns a numeric field, or 0 when absent or not numeric.
func (r Record) Float(key string) float64 {
	f, _ := toFloat(r[key])
	return f
}

// Int returns a numeric field rounded to an integer.
func (r Record) Int(key string) int64 {
	return int64(math.Round(r.Float(key)))
}

// Time parses a timestamp field.
func (r Record) Time(key string) (time.Time, bool) {
	s := r.String(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := ParseTime(s)
	return t, err == nil
}

func (r Record) clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Decode converts a record into a typed value through its JSON form.
func Decode[T any](r Record) (T, error) {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// DecodeAll decodes every record, failing on the first bad one.
func DecodeAll[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := Decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", r.ID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ToRecord converts a typed value into a record through its JSON form.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := Record{}
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// FormatTime renders t in the record store layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseTime accepts the record store layout and the common ISO variants.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("store: unrecognised time %q", s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
