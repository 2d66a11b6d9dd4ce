package recipe

import "sort"

// Requirements maps inventory item id to unit to total quantity. Units are
// not unified here; callers convert against the item's unit of record.
type Requirements map[string]map[string]float64

func (r Requirements) Add(itemID, unit string, quantity float64) {
	byUnit, ok := r[itemID]
	if !ok {
		byUnit = make(map[string]float64)
		r[itemID] = byUnit
	}
	byUnit[unit] += quantity
}

// ItemIDs returns the required item ids in sorted order.
func (r Requirements) ItemIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VisitedSet is the traversal state of an explosion.
type VisitedSet map[string]struct{}

func NewVisitedSet(ids ...string) VisitedSet {
	v := make(VisitedSet, len(ids))
	for _, id := range ids {
		v[id] = struct{}{}
	}
	return v
}

func (v VisitedSet) Has(id string) bool {
	_, ok := v[id]
	return ok
}

func (v VisitedSet) Add(id string)    { v[id] = struct{}{} }
func (v VisitedSet) Remove(id string) { delete(v, id) }
