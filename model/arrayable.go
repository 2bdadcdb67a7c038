package model

import "github.com/kbukum/ssehub/sse"

// Arrayable is implemented by values with a plain map representation, used
// for JSON responses.
type Arrayable interface {
	ToMap() map[string]any
}

var (
	_ Arrayable = (*sse.Connection)(nil)
	_ Arrayable = ConnectionLog{}
	_ Arrayable = Presence{}
)

// ToMaps converts every item with ToMap, preserving order.
func ToMaps[T Arrayable](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToMap())
	}
	return out
}
