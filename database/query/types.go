// Package query parses list parameters (pagination, sorting and
// PostgREST-style field filters) and applies them to GORM queries.
package query

// Operator represents a filter operator in PostgREST format (field=op.value).
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpNull    Operator = "null"
	OpNotNull Operator = "notNull"
)

// AllOperators returns all valid operators.
func AllOperators() []Operator {
	return []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpNull, OpNotNull}
}

// IsValid reports whether the operator is known.
func (o Operator) IsValid() bool {
	for _, v := range AllOperators() {
		if o == v {
			return true
		}
	}
	return false
}

// Condition represents a single filter condition.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string // for in
}

// Params holds parsed query parameters.
type Params struct {
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
	Conditions []Condition
}

// Where appends an equality condition, used for filters fixed by the route.
func (p *Params) Where(field, value string) {
	p.Conditions = append(p.Conditions, Condition{Field: field, Operator: OpEq, Value: value})
}

// Pagination metadata returned in paginated results.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Result is a paginated response.
type Result[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Config defines entity-specific query behavior.
type Config struct {
	AllowedSortFields []string
	AllowedFilters    []string
	FieldAliases      map[string]string
	DefaultSort       string
}

// ResolveField returns the actual column name for a field, using FieldAliases if available.
func (c Config) ResolveField(field string) string {
	if alias, ok := c.FieldAliases[field]; ok {
		return alias
	}
	return field
}

func (c Config) sortAllowed(field string) bool {
	for _, f := range c.AllowedSortFields {
		if f == field {
			return true
		}
	}
	return false
}
