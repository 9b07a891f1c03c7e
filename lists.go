package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
)

// ListSnapshot is the content of one list as read from the world, in file order.
type ListSnapshot []string

// Diff returns the names present in next but not in s, and the names present
// in s but not in next. Order in the input is ignored; results are sorted.
func (s ListSnapshot) Diff(next ListSnapshot) (added, removed []string) {
	prev := make(map[string]struct{}, len(s))
	for _, n := range s {
		prev[n] = struct{}{}
	}
	cur := make(map[string]struct{}, len(next))
	for _, n := range next {
		cur[n] = struct{}{}
		if _, ok := prev[n]; !ok {
			added = append(added, n)
		}
	}
	for n := range prev {
		if _, ok := cur[n]; !ok {
			removed = append(removed, n)
		}
	}
	slices.Sort(added)
	added = slices.Compact(added)
	slices.Sort(removed)
	return added, removed
}

// Contains reports whether name is on the list, ignoring case.
func (s ListSnapshot) Contains(name string) bool {
	for _, n := range s {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// ListReconciler re-reads the access-control lists and reports what changed
// since the last successful read of each list.
type ListReconciler struct {
	lists ListReader
	last  map[ListKind]ListSnapshot
}

func NewListReconciler(lists ListReader) *ListReconciler {
	return &ListReconciler{
		lists: lists,
		last:  make(map[ListKind]ListSnapshot),
	}
}

// Prime records the current lists as the baseline without reporting changes.
// Lists that cannot be read are primed by their first successful read in Reconcile.
func (r *ListReconciler) Prime(ctx context.Context) error {
	for _, kind := range listKinds {
		names, err := r.lists.ReadList(ctx, kind)
		if err != nil {
			if errors.Is(err, ErrWorldGone) {
				return err
			}
			log.Printf("prime %s: %v", kind, err)
			continue
		}
		r.last[kind] = ListSnapshot(names)
	}
	return nil
}

// Reconcile reads every list and returns one ListChange per list that changed,
// in dispatch order. A list that fails to read keeps its previous snapshot.
// ErrWorldGone from the reader aborts the whole pass.
func (r *ListReconciler) Reconcile(ctx context.Context) ([]ListChange, error) {
	fresh := make(map[ListKind]ListSnapshot, len(listKinds))
	var readErrs []error
	for _, kind := range listKinds {
		names, err := r.lists.ReadList(ctx, kind)
		if err != nil {
			if errors.Is(err, ErrWorldGone) {
				return nil, err
			}
			readErrs = append(readErrs, fmt.Errorf("read %s: %w", kind, err))
			continue
		}
		fresh[kind] = ListSnapshot(names)
	}

	var changes []ListChange
	for _, kind := range listKinds {
		next, ok := fresh[kind]
		if !ok {
			continue
		}
		prev, primed := r.last[kind]
		r.last[kind] = next
		if !primed {
			continue
		}
		added, removed := prev.Diff(next)
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		changes = append(changes, ListChange{List: kind, Added: added, Removed: removed})
	}
	return changes, errors.Join(readErrs...)
}

// Snapshot returns a copy of the last successfully read content of kind.
func (r *ListReconciler) Snapshot(kind ListKind) ListSnapshot {
	return slices.Clone(r.last[kind])
}
