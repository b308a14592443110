package utils

import (
	"slices"
	"testing"
)

func TestUnique(t *testing.T) {
	got := Unique([]string{"LAX", "PHX", "JFK", "LAX", "DEN", "PHX"})
	if !slices.Equal(got, []string{"LAX", "PHX", "JFK", "DEN"}) {
		t.Errorf("Unique = %v", got)
	}
	if got := Unique[int](nil); len(got) != 0 {
		t.Errorf("Unique(nil) = %v", got)
	}
}
