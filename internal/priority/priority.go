// Package priority orders and merges recommendations.
package priority

import (
	"cmp"
	"slices"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

func compare(a, b types.Recommendation) int {
	if c := cmp.Compare(b.Type.Rank(), a.Type.Rank()); c != 0 {
		return c
	}
	return cmp.Compare(b.Priority, a.Priority)
}

// Prioritize returns recs ordered by type (critical, warning, info) and then
// by priority, both descending. Equal keys keep their input order. recs is
// not modified.
func Prioritize(recs []types.Recommendation) []types.Recommendation {
	out := slices.Clone(recs)
	slices.SortStableFunc(out, compare)
	return out
}

// AggregateByCategory keeps the most urgent recommendation of each category,
// annotated with how many recommendations it stands for and which sensors
// raised them.
func AggregateByCategory(recs []types.Recommendation) []types.Recommendation {
	var order []types.Category
	groups := make(map[types.Category][]types.Recommendation)
	for _, r := range recs {
		if _, ok := groups[r.Category]; !ok {
			order = append(order, r.Category)
		}
		groups[r.Category] = append(groups[r.Category], r)
	}

	out := make([]types.Recommendation, 0, len(order))
	for _, c := range order {
		group := groups[c]
		top := Prioritize(group)[0]
		top.Count = len(group)
		top.Sensors = sensors(group)
		out = append(out, top)
	}

	return Prioritize(out)
}

func sensors(group []types.Recommendation) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, r := range group {
		add(r.SensorID)
		for _, id := range r.Sensors {
			add(id)
		}
	}
	return ids
}
