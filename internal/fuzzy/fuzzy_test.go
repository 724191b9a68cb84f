package fuzzy

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"light.living_room", "light.living_room", 0},
		{"light.livng_room", "light.living_room", 1},
		{"ligth.kitchen", "light.kitchen", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := distance(tt.a, tt.b); got != tt.want {
			t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClosestMatch(t *testing.T) {
	known := []string{
		"light.living_room",
		"light.kitchen",
		"switch.bedroom_fan",
		"sensor.temperature",
	}

	tests := []struct {
		name    string
		unknown string
		want    string
		wantOK  bool
	}{
		{
			name:    "single character dropped",
			unknown: "light.livng_room",
			want:    "light.living_room",
			wantOK:  true,
		},
		{
			name:    "transposition",
			unknown: "light.kitchne",
			want:    "light.kitchen",
			wantOK:  true,
		},
		{
			name:    "unrelated identifier",
			unknown: "camera.driveway",
			wantOK:  false,
		},
		{
			name:    "empty input",
			unknown: "",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClosestMatch(tt.unknown, known)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClosestMatchEmptyKnown(t *testing.T) {
	if _, ok := ClosestMatch("light.kitchen", nil); ok {
		t.Error("expected no match against empty known set")
	}
}

func TestClosestMatchSet(t *testing.T) {
	known := map[string]struct{}{
		"light.living_room": {},
		"light.kitchen":     {},
	}
	got, ok := ClosestMatchSet("light.livng_room", known)
	if !ok || got != "light.living_room" {
		t.Errorf("got %q (ok=%v), want light.living_room", got, ok)
	}
}

func TestClosestMatchDeterministicTies(t *testing.T) {
	// Both candidates are distance 1 away; lexical order decides.
	known := []string{"light.lab", "light.lad"}
	for range 10 {
		got, ok := ClosestMatch("light.laa", known)
		if !ok || got != "light.lab" {
			t.Fatalf("got %q (ok=%v), want light.lab", got, ok)
		}
	}
}
