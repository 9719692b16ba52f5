package setalg

import "testing"

func TestIntersect(t *testing.T) {
	got := Intersect([]int{1, 2, 3, 5}, []int{2, 3, 4})
	want := []int{2, 3}
	assertEqual(t, got, want)
}

func TestUnion(t *testing.T) {
	got := Union([]int{1, 3, 5}, []int{2, 3, 4})
	want := []int{1, 2, 3, 4, 5}
	assertEqual(t, got, want)
}

func TestIntersectAll(t *testing.T) {
	got := IntersectAll([][]int{{1, 2, 3}, {2, 3, 4}, {2, 3, 5}})
	want := []int{2, 3}
	assertEqual(t, got, want)
}

func TestIntersectAll_Empty(t *testing.T) {
	if got := IntersectAll[int](nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestUnionAll(t *testing.T) {
	got := UnionAll([][]int{{1}, {2, 3}, {3, 4}})
	want := []int{1, 2, 3, 4}
	assertEqual(t, got, want)
}

func TestComplement(t *testing.T) {
	type docID uint32
	got := Complement([]docID{1, 3}, 5)
	want := []docID{0, 2, 4}
	assertEqual(t, got, want)
}

func TestContains(t *testing.T) {
	set := []int{2, 4, 6}
	if !Contains(set, 4) {
		t.Error("expected Contains(set, 4) to be true")
	}
	if Contains(set, 5) {
		t.Error("expected Contains(set, 5) to be false")
	}
}

func assertEqual[T comparable](t *testing.T, got, want []T) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
