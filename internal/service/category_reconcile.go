package service

import "sort"

// ReconcileCategories diffs the linked category ids against the requested ones.
// Applying toRemove then toAdd to current yields exactly the requested set.
func ReconcileCategories(current, requested []uint) (toAdd, toRemove []uint) {
	currentSet := make(map[uint]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	requestedSet := make(map[uint]struct{}, len(requested))
	for _, id := range requested {
		requestedSet[id] = struct{}{}
	}

	toAdd = []uint{}
	for id := range requestedSet {
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	toRemove = []uint{}
	for id := range currentSet {
		if _, ok := requestedSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	sort.Slice(toAdd, func(i, j int) bool { return toAdd[i] < toAdd[j] })
	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i] < toRemove[j] })
	return toAdd, toRemove
}
