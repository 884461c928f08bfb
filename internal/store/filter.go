package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ganigeorgiev/fexpr"
)

// Filter is a parsed PocketBase filter expression.
type Filter struct {
	groups []fexpr.ExprGroup
}

// ParseFilter parses raw. An empty expression yields a filter that matches
// every record.
func ParseFilter(raw string) (*Filter, error) {
	if strings.TrimSpace(raw) == "" {
		return &Filter{}, nil
	}
	groups, err := fexpr.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", raw, err)
	}
	if err := validateGroups(groups); err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", raw, err)
	}
	return &Filter{groups: groups}, nil
}

var supportedSigns = map[fexpr.SignOp]bool{
	fexpr.SignEq:    true,
	fexpr.SignNeq:   true,
	fexpr.SignLike:  true,
	fexpr.SignNlike: true,
	fexpr.SignLt:    true,
	fexpr.SignLte:   true,
	fexpr.SignGt:    true,
	fexpr.SignGte:   true,
}

func validateGroups(groups []fexpr.ExprGroup) error {
	for _, g := range groups {
		switch item := g.Item.(type) {
		case fexpr.Expr:
			if !supportedSigns[item.Op] {
				return fmt.Errorf("unsupported operator %q", item.Op)
			}
		case []fexpr.ExprGroup:
			if err := validateGroups(item); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected filter item %T", g.Item)
		}
	}
	return nil
}

// Match evaluates the filter against r. && binds tighter than ||.
func (f *Filter) Match(r Record) bool {
	if f == nil || len(f.groups) == 0 {
		return true
	}
	return matchGroups(f.groups, r)
}

func matchGroups(groups []fexpr.ExprGroup, r Record) bool {
	matched := false
	chain := true
	for i, g := range groups {
		if i > 0 && g.Join == fexpr.JoinOr {
			matched = matched || chain
			chain = true
		}
		chain = chain && matchItem(g.Item, r)
	}
	return matched || chain
}

func matchItem(item any, r Record) bool {
	switch v := item.(type) {
	case fexpr.Expr:
		return matchExpr(v, r)
	case []fexpr.ExprGroup:
		return matchGroups(v, r)
	}
	return false
}

func operand(t fexpr.Token, r Record) any {
	switch t.Type {
	case fexpr.TokenText:
		return t.Literal
	case fexpr.TokenNumber:
		f, err := strconv.ParseFloat(t.Literal, 64)
		if err != nil {
			return t.Literal
		}
		return f
	case fexpr.TokenIdentifier:
		switch t.Literal {
		case "true":
			return true
		case "false":
			return false
		case "null":
			return nil
		}
		return r[t.Literal]
	}
	return nil
}

func matchExpr(e fexpr.Expr, r Record) bool {
	left := operand(e.Left, r)
	right := operand(e.Right, r)

	switch e.Op {
	case fexpr.SignEq:
		return equalValues(left, right)
	case fexpr.SignNeq:
		return !equalValues(left, right)
	case fexpr.SignLike:
		return likeValues(left, right)
	case fexpr.SignNlike:
		return !likeValues(left, right)
	}

	c, ok := compareValues(left, right)
	if !ok {
		return false
	}
	switch e.Op {
	case fexpr.SignLt:
		return c < 0
	case fexpr.SignLte:
		return c <= 0
	case fexpr.SignGt:
		return c > 0
	case fexpr.SignGte:
		return c >= 0
	}
	return false
}

// equalValues treats null and "" alike and compares strings case-insensitively.
func equalValues(a, b any) bool {
	if isEmpty(a) || isEmpty(b) {
		return isEmpty(a) && isEmpty(b)
	}
	if list, ok := a.([]any); ok {
		for _, item := range list {
			if equalValues(item, b) {
				return true
			}
		}
		return false
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ba == bb
	}
	return strings.EqualFold(stringify(a), stringify(b))
}

func likeValues(a, b any) bool {
	needle := strings.ToLower(strings.Trim(stringify(b), "%"))
	if list, ok := a.([]any); ok {
		for _, item := range list {
			if strings.Contains(strings.ToLower(stringify(item)), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(stringify(a)), needle)
}

// compareValues orders numbers numerically, timestamps chronologically and
// anything else as lowercase text.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, sb := stringify(a), stringify(b)
	if ta, err := ParseTime(sa); err == nil {
		if tb, err := ParseTime(sb); err == nil {
			return ta.Compare(tb), true
		}
	}
	return strings.Compare(strings.ToLower(sa), strings.ToLower(sb)), true
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return FormatTime(s)
	}
	return fmt.Sprint(v)
}

// SortField is one key of a sort expression.
type SortField struct {
	Field string
	Desc  bool
}

// ParseSort splits "-created,name" into its fields.
func ParseSort(raw string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := SortField{Field: part}
		switch part[0] {
		case '-':
			f = SortField{Field: part[1:], Desc: true}
		case '+':
			f.Field = part[1:]
		}
		fields = append(fields, f)
	}
	return fields
}

func sortRecords(records []Record, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, f := range fields {
			c, ok := compareValues(records[i][f.Field], records[j][f.Field])
			if !ok {
				// missing values sort first ascending
				ai, bj := isEmpty(records[i][f.Field]), isEmpty(records[j][f.Field])
				if ai == bj {
					continue
				}
				c = 1
				if ai {
					c = -1
				}
			}
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
