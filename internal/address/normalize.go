// Package address canonicalizes postal addresses into exact-match keys.
package address

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/couchcryptid/facility-lead-etl/internal/textfold"
)

// Fields are the raw postal fields of one record.
type Fields struct {
	Street string
	City   string
	State  string
	Zip    string
}

// NormalizedAddress is the comparable form of an address.
type NormalizedAddress struct {
	StreetKey string `json:"street_key"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip5      string `json:"zip5"`
}

// Empty reports whether there is no street to match on.
func (n NormalizedAddress) Empty() bool {
	return n.StreetKey == ""
}

// ExactKey joins the street key and zip for exact-match indexing. It is
// empty unless both a street and a five-digit zip are present, so blank
// addresses and placeholder zips such as "N/A" never collide.
func (n NormalizedAddress) ExactKey() string {
	if n.StreetKey == "" || !isZip5(n.Zip5) {
		return ""
	}
	return n.StreetKey + "|" + n.Zip5
}

func isZip5(z string) bool {
	if len(z) != 5 {
		return false
	}
	for _, r := range z {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// abbreviations maps street-type, directional and unit abbreviations to
// their long form. Keys are already lowercase with punctuation removed.
var abbreviations = map[string]string{
	// street types
	"st":   "street",
	"str":  "street",
	"ave":  "avenue",
	"av":   "avenue",
	"rd":   "road",
	"blvd": "boulevard",
	"dr":   "drive",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"pkwy": "parkway",
	"pky":  "parkway",
	"hwy":  "highway",
	"cir":  "circle",
	"ter":  "terrace",
	"trl":  "trail",
	"sq":   "square",
	"pk":   "pike",
	"tpke": "turnpike",
	"rte":  "route",
	"rt":   "route",
	"expy": "expressway",
	"aly":  "alley",
	"xing": "crossing",
	"plz":  "plaza",
	"ctr":  "center",
	"hts":  "heights",
	"mtn":  "mountain",
	"ext":  "extension",
	// directionals
	"n":  "north",
	"s":  "south",
	"e":  "east",
	"w":  "west",
	"ne": "northeast",
	"nw": "northwest",
	"se": "southeast",
	"sw": "southwest",
	// units
	"ste":  "suite",
	"apt":  "apartment",
	"bldg": "building",
	"fl":   "floor",
	"rm":   "room",
}

var numericZipRe = regexp.MustCompile(`^(\d+)(?:-\d+)?$`)

// Normalize canonicalizes f. It never fails: missing or unusable parts
// come back as empty strings.
func Normalize(f Fields) NormalizedAddress {
	return NormalizedAddress{
		StreetKey: StreetKey(f.Street),
		City:      textfold.Collapse(f.City),
		State:     textfold.Collapse(f.State),
		Zip5:      Zip5(f.Zip),
	}
}

// StreetKey lowercases a street line, drops punctuation and expands known
// abbreviations token by token. Tokens containing a digit are kept as is.
func StreetKey(street string) string {
	tokens := textfold.Tokens(street)
	for i, tok := range tokens {
		if hasDigit(tok) {
			continue
		}
		if long, ok := abbreviations[tok]; ok {
			tokens[i] = long
		}
	}
	return strings.Join(tokens, " ")
}

// Zip5 truncates or left-pads a numeric zip (including ZIP+4) to five
// digits. Anything else is returned trimmed but otherwise untouched.
func Zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	m := numericZipRe.FindStringSubmatch(zip)
	if m == nil {
		return zip
	}
	digits := m[1]
	switch {
	case len(digits) > 5:
		return digits[:5]
	case len(digits) < 5:
		return strings.Repeat("0", 5-len(digits)) + digits
	default:
		return digits
	}
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
