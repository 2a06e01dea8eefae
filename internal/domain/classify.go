package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Sector is the primary business sector assigned from NAICS codes and titles.
type Sector string

const (
	SectorEducation  Sector = "Education"
	SectorFleet      Sector = "Fleet and Transportation"
	SectorConstruct  Sector = "Construction"
	SectorHealthcare Sector = "Healthcare"
	SectorUtilities  Sector = "Utilities and Data Centers"
	SectorIndustrial Sector = "Industrial and Manufacturing"
	SectorPublic     Sector = "Public and Government"
	SectorRetail     Sector = "Retail and Commercial Fueling"
	SectorUnknown    Sector = "Unknown"
)

// sectorPreference orders sectors when two classifications carry the same
// confidence. Lower ranks are preferred.
var sectorPreference = map[Sector]int{
	SectorFleet:      1,
	SectorHealthcare: 2,
	SectorConstruct:  3,
	SectorUtilities:  4,
	SectorIndustrial: 5,
	SectorEducation:  6,
	SectorPublic:     7,
	SectorRetail:     8,
	SectorUnknown:    9,
}

// PreferenceRank returns the tie-break rank of a sector; unranked sectors sort last.
func (s Sector) PreferenceRank() int {
	if r, ok := sectorPreference[s]; ok {
		return r
	}
	return 99
}

var (
	dieselLikeCodes = map[string]bool{"DIESL": true, "BIDSL": true, "HO": true, "KERO": true}

	nonDieselCodes = map[string]bool{
		"GAS": true, "AVGAS": true, "JET": true, "ETHNL": true, "HZSUB": true, "OTHER": true,
		"USDOL": true, "NMO": true, "UNREG": true, "GSHOL": true, "NPOIL": true, "HZPRL": true,
	}

	activeStatusCodes = map[string]bool{"C": true}

	capacityNumberRe = regexp.MustCompile(`\d+\.?\d*`)
)

// IsDieselLike reports whether a tank substance code stores diesel-range fuel.
func IsDieselLike(code string) bool {
	return dieselLikeCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// IsKnownNonDiesel reports whether a substance code is explicitly not diesel.
func IsKnownNonDiesel(code string) bool {
	return nonDieselCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// IsActiveLike reports whether a tank status code means the tank is in service.
func IsActiveLike(status string) bool {
	return activeStatusCodes[strings.ToUpper(strings.TrimSpace(status))]
}

// CleanCapacity extracts a gallon figure from free text such as "15,000 gal".
// It returns nil when no number is present.
func CleanCapacity(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, "N/A") {
		return nil
	}
	m := capacityNumberRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// CapacityBucket groups a capacity into the ranges used by lead scoring.
func CapacityBucket(gallons *float64) string {
	if gallons == nil {
		return "<1K"
	}
	switch g := *gallons; {
	case g >= 20000:
		return "20K+"
	case g >= 10000:
		return "10K-20K"
	case g >= 5000:
		return "5K-10K"
	case g >= 1000:
		return "1K-5K"
	default:
		return "<1K"
	}
}

// NormalizeNAICSCode keeps the digits of a code and fixes it to six places,
// padding short codes with leading zeros.
func NormalizeNAICSCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) < 6 {
		digits = strings.Repeat("0", 6-len(digits)) + digits
	}
	return digits[:6]
}

type sectorRule struct {
	sector   Sector
	exact    []string
	prefixes []string
	keywords []string
}

// sectorRules is evaluated top to bottom. Within a rule, codes are checked
// before title keywords.
var sectorRules = []sectorRule{
	{sector: SectorEducation, prefixes: []string{"611"},
		keywords: []string{"school", "district", "university", "college", "campus"}},
	{sector: SectorFleet, prefixes: []string{"484", "485", "488"},
		keywords: []string{"trucking", "bus", "coach", "logistics", "intermodal", "yard", "terminal"}},
	{sector: SectorConstruct, prefixes: []string{"23"},
		keywords: []string{"construction", "site work", "excavation", "paving", "utility contractor", "heavy civil"}},
	{sector: SectorHealthcare, prefixes: []string{"621", "622", "623"},
		keywords: []string{"hospital", "medical center", "surgery", "nursing", "long term care"}},
	{sector: SectorUtilities, exact: []string{"518210"}, prefixes: []string{"22"},
		keywords: []string{"utility", "power", "water", "wastewater", "data center", "colocation"}},
	{sector: SectorIndustrial, prefixes: []string{"31", "32", "33"},
		keywords: []string{"plant", "fabrication", "manufacturing", "processing"}},
	{sector: SectorPublic, prefixes: []string{"92"},
		keywords: []string{"township", "borough", "county", "municipal", "fire", "police", "public works"}},
	{sector: SectorRetail, exact: []string{"447110", "447190"},
		keywords: []string{"gas station", "convenience", "c store"}},
}

var partialSectorPrefixes = map[string]Sector{
	"484": SectorFleet, "485": SectorFleet, "488": SectorFleet,
	"621": SectorHealthcare, "622": SectorHealthcare, "623": SectorHealthcare,
	"611": SectorEducation,
	"518": SectorUtilities,
}

// ClassifySector assigns a sector from a normalized NAICS code and its title.
// Code matches score 100, title keywords 70, partial prefixes 50.
func ClassifySector(code, title string) (Sector, int, string) {
	title = strings.ToLower(title)

	for _, rule := range sectorRules {
		for _, exact := range rule.exact {
			if code == exact {
				return rule.sector, 100, "Exact NAICS match"
			}
		}
		for _, prefix := range rule.prefixes {
			if code != "" && strings.HasPrefix(code, prefix) {
				return rule.sector, 100, "NAICS prefix match"
			}
		}
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.sector, 70, "Title keyword: " + truncate(title, 50)
			}
		}
	}

	if len(code) >= 3 {
		if sector, ok := partialSectorPrefixes[code[:3]]; ok {
			return sector, 50, "Partial NAICS prefix match"
		}
	}
	return SectorUnknown, 0, "No match found"
}

// Classify derives Flags from a record's source attributes.
func Classify(rec RawRecord) RawRecord {
	switch rec.Source {
	case SourceTankRegistry:
		rec.Flags.DieselLike = IsDieselLike(rec.Attributes.ProductCode)
		rec.Flags.ActiveLike = IsActiveLike(rec.Attributes.StatusCode)
		rec.Flags.CapacityBucket = CapacityBucket(rec.Attributes.CapacityGallons)
	case SourceNAICS:
		rec.Flags.Sector, rec.Flags.SectorConfidence, rec.Flags.SectorNotes =
			ClassifySector(rec.Attributes.NAICSCode, rec.Attributes.NAICSTitle)
	case SourceMapsExtract:
		if rec.Attributes.MapsCategory != "" {
			rec.Flags.Sector, rec.Flags.SectorConfidence, rec.Flags.SectorNotes =
				ClassifySector("", rec.Attributes.MapsCategory)
		}
	}
	return rec
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
