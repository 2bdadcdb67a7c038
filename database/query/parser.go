package query

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Parse extracts params from URL query values. Only fields listed in
// config.AllowedFilters are read as filters; anything else is ignored.
func Parse(q url.Values, config Config) Params {
	params := Params{
		Page:       max(intOrDefault(q.Get("page"), 1), 1),
		PageSize:   clamp(intOrDefault(q.Get("page_size"), DefaultPageSize), 1, MaxPageSize),
		SortBy:     q.Get("sort"),
		SortOrder:  normalizeSortOrder(q.Get("order")),
		Conditions: []Condition{},
	}

	for _, field := range config.AllowedFilters {
		if v := q.Get(field); v != "" {
			if cond := parseCondition(field, v); cond != nil {
				params.Conditions = append(params.Conditions, *cond)
			}
		}
	}
	return params
}

// parseCondition parses "op.value". A bare "null" or "notNull" is the unary
// operator; any other bare value means equality.
func parseCondition(field, value string) *Condition {
	if op := Operator(value); op == OpNull || op == OpNotNull {
		return &Condition{Field: field, Operator: op}
	}
	op, rest, found := strings.Cut(value, ".")
	if !found || !Operator(op).IsValid() {
		return &Condition{Field: field, Operator: OpEq, Value: value}
	}

	cond := &Condition{Field: field, Operator: Operator(op), Value: rest}
	if cond.Operator == OpIn {
		cond.Values = parseArrayValues(rest)
	}
	return cond
}

// parseArrayValues parses "(a,b,c)" or "a,b,c".
func parseArrayValues(inner string) []string {
	inner = strings.TrimSuffix(strings.TrimPrefix(inner, "("), ")")
	var out []string
	for _, v := range strings.Split(inner, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intOrDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func clamp(v, lower, upper int) int {
	return min(max(v, lower), upper)
}

func normalizeSortOrder(s string) string {
	if strings.EqualFold(s, "asc") {
		return "asc"
	}
	return "desc"
}
