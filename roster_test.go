package main

import (
	"slices"
	"testing"
)

func TestOnlineRosterJoinIsIdempotent(t *testing.T) {
	r := NewOnlineRoster()
	r.Add("A")
	r.Add("A")
	if r.Len() != 1 {
		t.Fatalf("expected 1 name after duplicate add, got %d", r.Len())
	}
	r.Remove("A")
	if r.Len() != 0 {
		t.Fatalf("expected empty roster after {join A, join A, leave A}, got %v", r.Snapshot())
	}
}

func TestOnlineRosterRemoveMissing(t *testing.T) {
	r := NewOnlineRoster()
	r.Add("A")
	r.Remove("B")
	if !r.Contains("A") || r.Len() != 1 {
		t.Fatalf("removing absent name changed roster: %v", r.Snapshot())
	}
}

func TestOnlineRosterSnapshotOrderAndCopy(t *testing.T) {
	r := NewOnlineRoster()
	for _, n := range []string{"C", "A", "B"} {
		r.Add(n)
	}
	r.Remove("A")

	snap := r.Snapshot()
	if want := []string{"C", "B"}; !slices.Equal(snap, want) {
		t.Fatalf("snapshot = %v, want %v", snap, want)
	}
	snap[0] = "X"
	if !r.Contains("C") || r.Contains("X") {
		t.Fatal("snapshot must not alias roster storage")
	}
}
