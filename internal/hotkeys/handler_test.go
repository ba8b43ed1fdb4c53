package hotkeys

import (
	"sort"
	"testing"

	"github.com/1broseidon/spaces/internal/events"
)

func TestBindingsPlan(t *testing.T) {
	plan, err := Bindings{
		SwitchLeft:       "Mod4-Left",
		SwitchRight:      " Mod4-Right ",
		ToggleFullscreen: "Mod4-f",
	}.plan()
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("got %d bindings, want 3", len(plan))
	}
	want := []events.Kind{events.SwitchLeft, events.SwitchRight, events.ToggleFullscreen}
	for i, bd := range plan {
		if bd.kind != want[i] {
			t.Fatalf("binding %d kind = %v, want %v", i, bd.kind, want[i])
		}
	}
	if plan[1].sequence != "Mod4-Right" {
		t.Fatalf("sequence not trimmed: %q", plan[1].sequence)
	}
}

func TestBindingsPlanSkipsEmpty(t *testing.T) {
	plan, err := Bindings{ToggleFullscreen: "Mod4-f"}.plan()
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(plan) != 1 || plan[0].kind != events.ToggleFullscreen {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestBindingsPlanRejectsDuplicates(t *testing.T) {
	_, err := Bindings{SwitchLeft: "Mod4-Left", SwitchRight: "mod4-left"}.plan()
	if err == nil {
		t.Fatal("expected duplicate binding error")
	}
}

func TestLockCombinations(t *testing.T) {
	got := lockCombinations([]uint16{2, 16, 128})
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []uint16{0, 2, 16, 18, 128, 130, 144, 146}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
