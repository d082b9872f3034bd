package util

import (
	"reflect"
	"testing"
)

func TestSortedStringKeys(t *testing.T) {
	m := map[string]int{"b": 1, "a": 2, "c": 3}
	got := SortedStringKeys(m)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUniqueSorted(t *testing.T) {
	got := UniqueSorted([]string{"z", "a", "z", "", "m"})
	want := []string{"a", "m", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if UniqueSorted(nil) != nil {
		t.Error("expected nil for empty input")
	}
}
