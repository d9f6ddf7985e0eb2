package service

import (
	"reflect"
	"sort"
	"testing"
)

func TestReconcileCategories(t *testing.T) {
	cases := []struct {
		name       string
		current    []uint
		requested  []uint
		wantAdd    []uint
		wantRemove []uint
	}{
		{name: "both empty", current: nil, requested: nil, wantAdd: []uint{}, wantRemove: []uint{}},
		{name: "add to empty", current: nil, requested: []uint{3, 1}, wantAdd: []uint{1, 3}, wantRemove: []uint{}},
		{name: "clear all", current: []uint{1, 2}, requested: []uint{}, wantAdd: []uint{}, wantRemove: []uint{1, 2}},
		{name: "identical", current: []uint{1, 2, 3}, requested: []uint{3, 2, 1}, wantAdd: []uint{}, wantRemove: []uint{}},
		{name: "disjoint", current: []uint{1, 2}, requested: []uint{3, 4}, wantAdd: []uint{3, 4}, wantRemove: []uint{1, 2}},
		{name: "overlap", current: []uint{1, 2, 3}, requested: []uint{2, 3, 5}, wantAdd: []uint{5}, wantRemove: []uint{1}},
		{name: "duplicates in request", current: []uint{1}, requested: []uint{2, 2, 1}, wantAdd: []uint{2}, wantRemove: []uint{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			add, remove := ReconcileCategories(tc.current, tc.requested)
			if !reflect.DeepEqual(add, tc.wantAdd) {
				t.Fatalf("toAdd = %v, want %v", add, tc.wantAdd)
			}
			if !reflect.DeepEqual(remove, tc.wantRemove) {
				t.Fatalf("toRemove = %v, want %v", remove, tc.wantRemove)
			}
		})
	}
}

func TestReconcileCategoriesReachesRequestedSet(t *testing.T) {
	sets := [][]uint{nil, {1}, {1, 2}, {2, 3, 4}, {5, 6, 7, 8}, {1, 4, 8}}
	for _, current := range sets {
		for _, requested := range sets {
			add, remove := ReconcileCategories(current, requested)

			for _, a := range add {
				for _, r := range remove {
					if a == r {
						t.Fatalf("id %d both added and removed for %v -> %v", a, current, requested)
					}
				}
			}

			applied := applyDiff(current, add, remove)
			if !reflect.DeepEqual(applied, normalizeSet(requested)) {
				t.Fatalf("%v -> %v produced %v", current, requested, applied)
			}

			again, removeAgain := ReconcileCategories(applied, requested)
			if len(again) != 0 || len(removeAgain) != 0 {
				t.Fatalf("second application changed links: add %v remove %v", again, removeAgain)
			}
		}
	}
}

func applyDiff(current, add, remove []uint) []uint {
	set := map[uint]struct{}{}
	for _, id := range current {
		set[id] = struct{}{}
	}
	for _, id := range remove {
		delete(set, id)
	}
	for _, id := range add {
		set[id] = struct{}{}
	}
	out := []uint{}
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalizeSet(ids []uint) []uint {
	return applyDiff(ids, nil, nil)
}
