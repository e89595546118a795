package synchronizer

import (
	"reflect"
	"testing"
)

type testItem struct {
	ID   string
	Body string
}

func testItemID(i testItem) string { return i.ID }

func TestDiff_DropsDisappearedAndFetchesNew(t *testing.T) {
	existing := []testItem{{"a", "A"}, {"b", "B"}}
	plan := Diff(existing, testItemID, []string{"b", "c"})

	if got := plan.ToFetch(); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("expected to fetch [c], got %v", got)
	}

	carried := plan.CarryForward()
	if len(carried) != 1 || carried[0].ID != "b" {
		t.Errorf("expected b to be carried forward, got %+v", carried)
	}

	merged := plan.Merge(map[string]testItem{"c": {"c", "C"}})
	want := []testItem{{"b", "B"}, {"c", "C"}}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("expected %+v, got %+v", want, merged)
	}
}

func TestDiff_NoExistingFetchesEverything(t *testing.T) {
	plan := Diff[testItem](nil, testItemID, []string{"x", "y", "x"})
	if got := plan.ToFetch(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("expected unique [x y], got %v", got)
	}
	if len(plan.CarryForward()) != 0 {
		t.Error("expected nothing carried forward")
	}
}

func TestDiff_UnchangedListFetchesNothing(t *testing.T) {
	existing := []testItem{{"a", "A"}, {"b", "B"}}
	plan := Diff(existing, testItemID, []string{"a", "b"})
	if len(plan.ToFetch()) != 0 {
		t.Errorf("expected no fetches, got %v", plan.ToFetch())
	}
	if got := plan.Merge(nil); !reflect.DeepEqual(got, existing) {
		t.Errorf("expected existing items unchanged, got %+v", got)
	}
}

func TestDiff_PreservesFreshOrder(t *testing.T) {
	existing := []testItem{{"a", "A"}, {"b", "B"}, {"c", "C"}}
	plan := Diff(existing, testItemID, []string{"d", "c", "a"})
	merged := plan.Merge(map[string]testItem{"d": {"d", "D"}})

	var ids []string
	for _, m := range merged {
		ids = append(ids, m.ID)
	}
	if !reflect.DeepEqual(ids, []string{"d", "c", "a"}) {
		t.Errorf("expected fresh order [d c a], got %v", ids)
	}
}
