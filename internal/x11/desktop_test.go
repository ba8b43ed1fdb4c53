package x11

import "testing"

func TestShiftedFallback(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		fallback int
		count    int
		want     int
	}{
		{name: "below removed", index: 5, fallback: 4, count: 6, want: 4},
		{name: "above removed shifts down", index: 2, fallback: 4, count: 6, want: 3},
		{name: "negative clamps to zero", index: 0, fallback: -1, count: 3, want: 0},
		{name: "clamped to surviving range", index: 1, fallback: 9, count: 3, want: 1},
		{name: "first desktop removed", index: 0, fallback: 0, count: 2, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shiftedFallback(tt.index, tt.fallback, tt.count); got != tt.want {
				t.Fatalf("shiftedFallback(%d, %d, %d) = %d, want %d", tt.index, tt.fallback, tt.count, got, tt.want)
			}
		})
	}
}
