package index

import (
	"math"
	"testing"
)

func TestEntryKeys(t *testing.T) {
	if got := PostEntryKey("abc123"); got != "post:abc123" {
		t.Errorf("PostEntryKey = %q", got)
	}
	if got := LmsEntryKey("lessons", "abc123"); got != "lms:lessons:abc123" {
		t.Errorf("LmsEntryKey = %q", got)
	}

	// Same record id, different key space: never collides.
	if PostEntryKey("abc123") == LmsEntryKey("lessons", "abc123") {
		t.Error("post and lms keys collide for the same id")
	}
}

func TestNamespaceForOrganization(t *testing.T) {
	if got := NamespaceForOrganization("org1"); got != "org-org1" {
		t.Errorf("NamespaceForOrganization = %q", got)
	}
	if NamespaceForOrganization("a") == NamespaceForOrganization("b") {
		t.Error("different organizations share a namespace")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
