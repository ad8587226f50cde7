package stage

import (
	"context"
	"testing"
)

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{Received, DocumentAnalyzed, true},
		{DocumentAnalyzed, PhotosValidated, true},
		{PhotosAnalyzed, Uploaded, true},
		{Uploaded, Committed, true},
		{Received, PhotosAnalyzed, false},
		{PhotosValidated, Failed, true},
		{Committed, Failed, false},
		{Failed, Received, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if _, ok := Committed.Next(); ok {
		t.Fatal("committed should have no successor")
	}
}

func TestCollectSortsAndAggregates(t *testing.T) {
	checks := []Checker{
		CheckerFunc(func(context.Context) Health { return Healthy("storage") }),
		nil,
		CheckerFunc(func(context.Context) Health { return Unhealthy("database", "locked") }),
	}
	records, ready := Collect(context.Background(), checks...)
	if ready {
		t.Fatal("expected not ready")
	}
	if len(records) != 2 || records[0].Name != "database" || records[1].Name != "storage" {
		t.Fatalf("unexpected records %+v", records)
	}
	if records[0].Detail != "locked" {
		t.Fatalf("unexpected detail %q", records[0].Detail)
	}
}
