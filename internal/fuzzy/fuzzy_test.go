package fuzzy

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Reunião", "reuniao"},
		{"  Café   com   Ana! ", "cafe com ana"},
		{"SIM", "sim"},
		{"não", "nao"},
		{"dentist @ 3pm", "dentist 3pm"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"yes", "yes", 0},
		{"yes", "yse", 1}, // transposition
		{"yes", "yess", 1},
		{"yes", "ye", 1},
		{"sim", "sin", 1},
		{"yes", "no", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("", ""); got != 1 {
		t.Errorf("Similarity empty = %v", got)
	}
	if got := Similarity("abcd", "abcf"); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Similarity = %v, want 0.75", got)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		query, item string
		min, max    float64
	}{
		{"exact", "Dentist", "dentist", 1, 1},
		{"accent folded", "reuniao", "Reunião", 1, 1},
		{"contained", "dentist", "Dentist appointment", 0.9, 1},
		{"morphological", "meetings", "team meeting", 0.45, 1},
		{"unrelated", "groceries", "dentist appointment", 0, 0.45},
		{"empty", "", "x", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.query, tt.item)
			if got < tt.min || got > tt.max {
				t.Errorf("Score(%q, %q) = %v, want in [%v, %v]", tt.query, tt.item, got, tt.min, tt.max)
			}
		})
	}
}

func TestRank(t *testing.T) {
	items := []string{"Dentist appointment", "Gym", "Call dentist office", "Groceries"}
	got := Rank("dentist", items, func(s string) string { return s }, DefaultThreshold)
	if len(got) != 2 {
		t.Fatalf("Rank len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Item != "Dentist appointment" {
		t.Errorf("Rank[0] = %q", got[0].Item)
	}
	for _, m := range got {
		if m.Score < DefaultThreshold {
			t.Errorf("match %q below threshold: %v", m.Item, m.Score)
		}
	}

	if none := Rank("zzz", items, func(s string) string { return s }, DefaultThreshold); len(none) != 0 {
		t.Errorf("Rank(zzz) = %+v, want none", none)
	}
}
