package board

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// SortDocument returns the ordered sort specification. Board sorts are applied
// in index order; the k-th dynamic sort takes its key and order from the k-th
// request sort, falling back to its own.
func (b *Board) SortDocument(p Params) bson.D {
	specs := make([]Sort, len(b.Sorts))
	copy(specs, b.Sorts)
	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].Index < specs[j].Index
	})

	out := bson.D{}
	seen := make(map[string]bool, len(specs))
	dynamic := 0
	for _, s := range specs {
		key, order := s.Key, s.Order
		if s.Dynamic {
			if dynamic < len(p.Sort) && strings.TrimSpace(p.Sort[dynamic]) != "" {
				key = strings.TrimSpace(p.Sort[dynamic])
			}
			if dynamic < len(p.Order) && strings.TrimSpace(p.Order[dynamic]) != "" {
				order = p.Order[dynamic]
			}
			dynamic++
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, bson.E{Key: key, Value: direction(order)})
	}
	return out
}

func direction(order string) int {
	if strings.EqualFold(strings.TrimSpace(order), "asc") {
		return 1
	}
	return -1
}
