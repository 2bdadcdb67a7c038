package query

import (
	"fmt"

	"gorm.io/gorm"
)

// Apply runs params against db and returns one page of T.
func Apply[T any](db *gorm.DB, params Params, config Config) (*Result[T], error) {
	q := db.Session(&gorm.Session{}).Model(new(T))
	for _, cond := range params.Conditions {
		q = applyCondition(q, cond, config)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	q = applySort(q, params.SortBy, params.SortOrder, config)
	q = q.Offset((params.Page - 1) * params.PageSize).Limit(params.PageSize)

	data := make([]T, 0)
	if err := q.Find(&data).Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	totalPages := (int(total) + params.PageSize - 1) / params.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return &Result[T]{
		Data: data,
		Pagination: Pagination{
			Page:       params.Page,
			PageSize:   params.PageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}, nil
}

func applyCondition(db *gorm.DB, cond Condition, config Config) *gorm.DB {
	field := config.ResolveField(cond.Field)

	switch cond.Operator {
	case OpEq:
		return db.Where(fmt.Sprintf("%s = ?", field), cond.Value)
	case OpNeq:
		return db.Where(fmt.Sprintf("%s != ?", field), cond.Value)
	case OpGt:
		return db.Where(fmt.Sprintf("%s > ?", field), cond.Value)
	case OpGte:
		return db.Where(fmt.Sprintf("%s >= ?", field), cond.Value)
	case OpLt:
		return db.Where(fmt.Sprintf("%s < ?", field), cond.Value)
	case OpLte:
		return db.Where(fmt.Sprintf("%s <= ?", field), cond.Value)
	case OpIn:
		if len(cond.Values) > 0 {
			return db.Where(fmt.Sprintf("%s IN ?", field), cond.Values)
		}
	case OpNull:
		return db.Where(fmt.Sprintf("%s IS NULL", field))
	case OpNotNull:
		return db.Where(fmt.Sprintf("%s IS NOT NULL", field))
	}
	return db
}

func applySort(db *gorm.DB, sortBy, sortOrder string, config Config) *gorm.DB {
	if sortBy != "" && config.sortAllowed(sortBy) {
		order := config.ResolveField(sortBy)
		if sortOrder == "desc" {
			order += " DESC"
		}
		return db.Order(order)
	}
	if config.DefaultSort != "" {
		return db.Order(config.DefaultSort)
	}
	return db
}
