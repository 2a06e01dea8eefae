package domain

import "fmt"

// Source identifies the dataset a record came from. The numeric order is the
// merge priority: lower values win over higher ones.
type Source int

const (
	SourceTankRegistry Source = iota
	SourceNAICS
	SourceMapsExtract
)

var sourceNames = [...]string{
	SourceTankRegistry: "tank_registry",
	SourceNAICS:        "naics",
	SourceMapsExtract:  "maps_extract",
}

// Sources returns every known source in priority order.
func Sources() []Source {
	return []Source{SourceTankRegistry, SourceNAICS, SourceMapsExtract}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s >= SourceTankRegistry && s <= SourceMapsExtract
}

// HigherPriorityThan reports whether s outranks other when merging fields.
func (s Source) HigherPriorityThan(other Source) bool {
	return s < other
}

func (s Source) String() string {
	if !s.Valid() {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// ParseSource maps a source tag such as "naics" back to its Source.
func ParseSource(tag string) (Source, error) {
	for i, name := range sourceNames {
		if name == tag {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", tag)
}

func (s Source) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal source: invalid value %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
