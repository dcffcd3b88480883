package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUnexpectedShape is returned when a list response is neither an array nor
// an envelope carrying one.
var ErrUnexpectedShape = errors.New("listing: unexpected list response shape")

// Row is one record as returned by the API. Numbers stay json.Number so they
// survive the round trip untouched.
type Row map[string]any

// ResultPage is the rows plus total count returned for one descriptor. The
// total is authoritative for pagination, not len(Rows).
type ResultPage struct {
	Rows  []Row `json:"rows"`
	Total int   `json:"total"`
}

// TotalPages derives the page count for a page size.
func (p ResultPage) TotalPages(pageSize int) int {
	if pageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(p.Total) / float64(pageSize)))
}

var (
	rowKeys   = []string{"items", "rows", "data", "results"}
	totalKeys = []string{"total", "count", "totalCount", "total_count"}
)

// Unwrap normalizes the shapes list endpoints answer with: a bare array,
// or an object carrying the array under items/rows/data/results and an
// optional total.
func Unwrap(body []byte) (ResultPage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ResultPage{}, ErrUnexpectedShape
	}
	switch trimmed[0] {
	case '[':
		rows, err := decodeRows(trimmed)
		if err != nil {
			return ResultPage{}, err
		}
		return ResultPage{Rows: rows, Total: len(rows)}, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return ResultPage{}, fmt.Errorf("listing: decode envelope: %w", err)
		}
		for _, key := range rowKeys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			raw = bytes.TrimSpace(raw)
			if bytes.Equal(raw, []byte("null")) {
				return ResultPage{Rows: []Row{}, Total: totalFrom(envelope, 0)}, nil
			}
			if len(raw) == 0 || raw[0] != '[' {
				continue
			}
			rows, err := decodeRows(raw)
			if err != nil {
				return ResultPage{}, err
			}
			return ResultPage{Rows: rows, Total: totalFrom(envelope, len(rows))}, nil
		}
	}
	return ResultPage{}, ErrUnexpectedShape
}

func decodeRows(raw []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("listing: decode rows: %w", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

func totalFrom(envelope map[string]json.RawMessage, fallback int) int {
	for _, key := range totalKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				continue
			}
			n = json.Number(s)
		}
		if v, err := n.Int64(); err == nil && v >= 0 {
			return int(v)
		}
	}
	return fallback
}

// Cut enforces the page-size invariant on rows that came back from an
// endpoint which ignored or lacks server paging. For NoPaging endpoints the
// requested page is sliced out of the full set and the total becomes the
// full length.
func Cut(page ResultPage, d Descriptor, paging PagingStyle) ResultPage {
	if d.PageSize <= 0 {
		return page
	}
	if paging == NoPaging {
		total := len(page.Rows)
		start := (d.Page - 1) * d.PageSize
		if start > total {
			start = total
		}
		end := start + d.PageSize
		if end > total {
			end = total
		}
		return ResultPage{Rows: page.Rows[start:end], Total: total}
	}
	if len(page.Rows) > d.PageSize {
		page.Rows = page.Rows[:d.PageSize]
	}
	return page
}

// DecodeRows converts a page of generic rows into typed records.
func DecodeRows[T any](rows []Row) ([]T, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("listing: decode typed rows: %w", err)
	}
	return out, nil
}
