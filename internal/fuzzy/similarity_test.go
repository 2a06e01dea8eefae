package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith Trucking LLC", "smith trucking"},
		{"LLC Smith Trucking", "smith trucking"},
		{"Acme Fuel, Inc.", "acme fuel"},
		{"ACME FUEL L.L.C.", "acme fuel"},
		{"The Boro Co", "boro the"},
		{"Inc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestSimilarity_TokenOrderAndSuffixes(t *testing.T) {
	a := Similarity("Smith Trucking LLC", "LLC Smith Trucking")
	b := Similarity("Smith Trucking LLC", "Smith Trucking")

	assert.Equal(t, 100.0, a)
	assert.Equal(t, a, b)
}

func TestSimilarity_Scores(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical after cleaning", "Acme Fuel LLC", "ACME FUEL", 100},
		{"one edit in ten", "Acme Fuel", "Acme Fuels", 90},
		{"classic edit distance", "kitten", "sitting", 100 * (1 - 3.0/7.0)},
		{"unrelated", "abc", "xyz", 0},
		{"accent folding", "Café Diesel", "Cafe Diesel", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("LLC", "Inc."))
	assert.Equal(t, 0.0, Similarity("Acme", ""))
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Doylestown Hospital", "Doylestown Hosp"},
		{"Central Bucks School District", "Central Bucks SD"},
		{"Bucks County Fuel", "Fuel Bucks"},
		{"", "Acme"},
		{"Zürich Haulage", "Zurich Haulage Ltd"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_Range(t *testing.T) {
	for _, p := range [][2]string{{"a", "bbbbbbbb"}, {"Acme", "Acme"}, {"x y z", "z y x"}} {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
	}
}
