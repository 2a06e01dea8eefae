package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreetKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"street abbreviation", "100 Main St.", "100 main street"},
		{"already expanded", "100 Main Street", "100 main street"},
		{"directional and unit", "25 N. Broad St, Apt 4B", "25 north broad street apartment 4b"},
		{"route number kept", "Rte 611", "route 611"},
		{"upper case", "1200 W CHESTNUT AVE", "1200 west chestnut avenue"},
		{"hash unit", "300 Industrial Pkwy #12", "300 industrial parkway 12"},
		{"ordinal kept verbatim", "41 E 3rd St", "41 east 3rd street"},
		{"blank", "   ", ""},
		{"punctuation only", "..,", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreetKey(tt.in))
		})
	}
}

func TestZip5(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"18901", "18901"},
		{"18901-1234", "18901"},
		{"189011234", "18901"},
		{"8901", "08901"},
		{" 19007 ", "19007"},
		{"K1A 0B1", "K1A 0B1"},
		{"ABC12", "ABC12"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Zip5(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(Fields{Street: "100 Main St", City: " Doylestown ", State: "PA", Zip: "18901-0001"})

	assert.Equal(t, NormalizedAddress{
		StreetKey: "100 main street",
		City:      "doylestown",
		State:     "pa",
		Zip5:      "18901",
	}, got)
	assert.Equal(t, "100 main street|18901", got.ExactKey())
	assert.False(t, got.Empty())
}

func TestNormalize_Deterministic(t *testing.T) {
	f := Fields{Street: "12 S. Oak Ave, Ste 200", City: "Media", State: "Pa", Zip: "19063"}
	first := Normalize(f)
	for range 10 {
		assert.Equal(t, first, Normalize(f))
	}
}

func TestNormalize_EquivalentSpellings(t *testing.T) {
	a := Normalize(Fields{Street: "100 Main St", Zip: "18901"})
	b := Normalize(Fields{Street: "100 MAIN STREET", Zip: "18901-4455"})

	assert.Equal(t, a.ExactKey(), b.ExactKey())
}

func TestExactKey_RequiresStreetAndZip(t *testing.T) {
	assert.Empty(t, Normalize(Fields{}).ExactKey())
	assert.Empty(t, Normalize(Fields{Street: "100 Main St"}).ExactKey())
	assert.Empty(t, Normalize(Fields{Zip: "18901"}).ExactKey())
	assert.True(t, Normalize(Fields{City: "Doylestown"}).Empty())
}

func TestExactKey_IgnoresPlaceholderZip(t *testing.T) {
	tests := []struct {
		name string
		zip  string
	}{
		{"not available", "N/A"},
		{"word", "unknown"},
		{"state in zip column", "PA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(Fields{Street: "100 Main St", Zip: tt.zip})
			assert.Equal(t, tt.zip, n.Zip5)
			assert.Empty(t, n.ExactKey())
		})
	}
}
