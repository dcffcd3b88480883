package listing

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// View is the page-local transformation some screens apply to an already
// fetched page. It holds no state beyond its fields, so the same inputs
// always derive the same rows.
type View struct {
	// Search is matched, ignoring case and accents, against SearchFields.
	Search       string
	SearchFields []string
	// SortField is the row key to order by; empty keeps API order.
	SortField string
	SortDir   string
	// SortRanks, when set, orders SortField by rank instead of text. Values
	// without a rank sort after every ranked one.
	SortRanks map[string]int
}

// Apply filters and orders rows without mutating the input slice.
func (v View) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	needle := fold(strings.TrimSpace(v.Search))
	for _, row := range rows {
		if needle == "" || v.matches(row, needle) {
			out = append(out, row)
		}
	}
	if v.SortField == "" {
		return out
	}
	desc := v.SortDir == SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := v.sortKey(out[i][v.SortField])
		b, bok := v.sortKey(out[j][v.SortField])
		switch {
		case !aok:
			return false
		case !bok:
			return true
		}
		c := compareValues(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func (v View) sortKey(value any) (sortValue, bool) {
	key, ok := sortKeyOf(value)
	if !ok || v.SortRanks == nil {
		return key, ok
	}
	if rank, ranked := v.SortRanks[FormatValue(value)]; ranked {
		return sortValue{num: float64(rank), isNum: true}, true
	}
	return sortValue{num: float64(len(v.SortRanks)), isNum: true}, true
}

func (v View) matches(row Row, needle string) bool {
	for _, field := range v.SearchFields {
		value, ok := row[field]
		if !ok || value == nil {
			continue
		}
		if strings.Contains(fold(FormatValue(value)), needle) {
			return true
		}
	}
	return false
}

// fold lowercases and strips diacritics so "accion" matches "Acción".
func fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

type sortValue struct {
	num    float64
	isNum  bool
	text   string
	isBool bool
	b      bool
}

// sortKeyOf reports false for values that sort last: nil and blank strings.
func sortKeyOf(value any) (sortValue, bool) {
	switch v := value.(type) {
	case nil:
		return sortValue{}, false
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return sortValue{num: f, isNum: true}, true
		}
		return sortValue{text: v.String()}, true
	case float64:
		return sortValue{num: v, isNum: true}, true
	case int:
		return sortValue{num: float64(v), isNum: true}, true
	case int64:
		return sortValue{num: float64(v), isNum: true}, true
	case bool:
		return sortValue{b: v, isBool: true}, true
	case string:
		if strings.TrimSpace(v) == "" {
			return sortValue{}, false
		}
		return sortValue{text: fold(v)}, true
	default:
		s := FormatValue(v)
		if s == "" {
			return sortValue{}, false
		}
		return sortValue{text: fold(s)}, true
	}
}

func compareValues(a, b sortValue) int {
	switch {
	case a.isNum && b.isNum:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case a.isBool && b.isBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	}
	return strings.Compare(textOf(a), textOf(b))
}

func textOf(v sortValue) string {
	switch {
	case v.isNum:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case v.isBool:
		return strconv.FormatBool(v.b)
	}
	return v.text
}
