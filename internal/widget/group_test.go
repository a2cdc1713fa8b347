package widget

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func w(key, typ string) Widget { return Widget{Key: key, Type: typ} }

func TestPartitionEmpty(t *testing.T) {
	g := NewGrouper(nil)
	if got := g.Partition(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}
}

func TestPartitionIndividualWidgets(t *testing.T) {
	g := NewGrouper(nil)
	got := g.Partition([]Widget{w("widget1", "orderer"), w("widget2", "radio")})
	want := []Group{
		{Type: "orderer", Widgets: []Widget{w("widget1", "orderer")}},
		{Type: "radio", Widgets: []Widget{w("widget2", "radio")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionUnsupportedGoIntoDefaultBucketLast(t *testing.T) {
	g := NewGrouper(nil)
	got := g.Partition([]Widget{
		w("widget1", "image"),
		w("widget2", "definition"),
		w("widget3", "orderer"),
	})
	want := []Group{
		{Type: "orderer", Widgets: []Widget{w("widget3", "orderer")}},
		{Type: TypeDefault, Widgets: []Widget{w("widget1", "image"), w("widget2", "definition")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionGroupsOnlyConsecutiveRuns(t *testing.T) {
	g := NewGrouper(nil)
	got := g.Partition([]Widget{
		w("widget1", "input-number"),
		w("widget2", "radio"),
		w("widget3", "input-number"),
		w("widget4", "matcher"),
		w("widget5", "input-number"),
		w("widget6", "input-number"),
	})
	want := []Group{
		{Type: "input-number", Widgets: []Widget{w("widget1", "input-number")}},
		{Type: "radio", Widgets: []Widget{w("widget2", "radio")}},
		{Type: "input-number", Widgets: []Widget{w("widget3", "input-number")}},
		{Type: "matcher", Widgets: []Widget{w("widget4", "matcher")}},
		{Type: "input-number", Widgets: []Widget{w("widget5", "input-number"), w("widget6", "input-number")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionNonConsecutiveSameType(t *testing.T) {
	// input-number, input-number, radio, input-number -> three groups.
	g := NewGrouper(nil)
	got := g.Partition([]Widget{
		w("w1", "input-number"),
		w("w2", "input-number"),
		w("w3", "radio"),
		w("w4", "input-number"),
	})
	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(got))
	}
	if len(got[0].Widgets) != 2 || got[0].Type != "input-number" {
		t.Fatalf("first group should hold the leading input-number run, got %+v", got[0])
	}
	if got[1].Type != "radio" || got[2].Type != "input-number" {
		t.Fatalf("unexpected trailing groups: %+v", got[1:])
	}
}

func TestPartitionExpandsContainers(t *testing.T) {
	inner, _ := json.Marshal(map[string]any{
		"widgets": []Widget{w("inner1", "radio"), w("inner2", "input-number")},
	})
	g := NewGrouper(nil)
	got := g.Partition([]Widget{
		{Key: "group1", Type: "graded-group", Options: inner},
		w("after", "input-number"),
	})
	want := []Group{
		{Type: "radio", Widgets: []Widget{w("inner1", "radio")}},
		{Type: "input-number", Widgets: []Widget{w("inner2", "input-number"), w("after", "input-number")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionSkipsUntypedWidgets(t *testing.T) {
	g := NewGrouper(nil)
	got := g.Partition([]Widget{
		{Key: "broken"},
		w("ok", "radio"),
	})
	want := []Group{{Type: "radio", Widgets: []Widget{w("ok", "radio")}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionUnknownTypeSharesDefaultBucket(t *testing.T) {
	g := NewGrouper(nil)
	got := g.Partition([]Widget{
		w("w1", "video"),
		w("w2", "brand-new-widget"),
	})
	if len(got) != 1 || got[0].Type != TypeDefault || len(got[0].Widgets) != 2 {
		t.Fatalf("expected one default bucket with both widgets, got %+v", got)
	}
}
