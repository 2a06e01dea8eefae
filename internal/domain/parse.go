package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SourceRecord is a row decoded from one source's native column layout.
type SourceRecord interface {
	Source() Source
	ToRawRecord() RawRecord
}

// TankRecord is a PA DEP storage-tank registry row.
type TankRecord struct {
	SiteID        string `json:"PF_SITE_ID"`
	FacilityName  string `json:"PF_NAME"`
	MailingName   string `json:"MAILING_NAME"`
	Address1      string `json:"LOCAD_PF_ADDRESS_1"`
	Address2      string `json:"LOCAD_PF_ADDRESS_2"`
	City          string `json:"LOCAD_PF_CITY"`
	State         string `json:"LOCAD_PF_STATE"`
	Zip           string `json:"LOCAD_PF_ZIP_CODE"`
	County        string `json:"PF_COUNTY_NAME"`
	SubstanceCode string `json:"SUBSTANCE_CODE"`
	Capacity      string `json:"CAPACITY"`
	StatusCode    string `json:"STATUS_CODE"`
	Latitude      string `json:"LATITUDE"`
	Longitude     string `json:"LONGITUDE"`
}

func (TankRecord) Source() Source { return SourceTankRegistry }

func (t TankRecord) ToRawRecord() RawRecord {
	name := strings.TrimSpace(t.FacilityName)
	if name == "" {
		name = strings.TrimSpace(t.MailingName)
	}
	addr := Address{
		Street:  strings.TrimSpace(t.Address1),
		Street2: strings.TrimSpace(t.Address2),
		City:    strings.TrimSpace(t.City),
		State:   strings.TrimSpace(t.State),
		Zip:     strings.TrimSpace(t.Zip),
		County:  strings.TrimSpace(t.County),
	}
	id := strings.TrimSpace(t.SiteID)
	synthetic := id == ""
	if synthetic {
		id = CompositeID(name, addr.Street)
	}
	return RawRecord{
		Source:      SourceTankRegistry,
		RawID:       id,
		SyntheticID: synthetic,
		Name:        name,
		Address:     addr,
		Coordinates: parseCoordinates(t.Latitude, t.Longitude),
		Attributes: Attributes{
			ProductCode:     strings.ToUpper(strings.TrimSpace(t.SubstanceCode)),
			CapacityGallons: CleanCapacity(t.Capacity),
			StatusCode:      strings.ToUpper(strings.TrimSpace(t.StatusCode)),
		},
	}
}

// NaicsRecord is a row from a local NAICS business listing export.
type NaicsRecord struct {
	ID          string `json:"ID"`
	CompanyName string `json:"COMPANY NAME"`
	Street      string `json:"STREET ADDRESS"`
	City        string `json:"CITY"`
	State       string `json:"STATE"`
	Zip         string `json:"ZIP CODE"`
	County      string `json:"COUNTY"`
	NAICSCode   string `json:"NAICS"`
	NAICSTitle  string `json:"NAICS DESCRIPTION"`
	Latitude    string `json:"LATITUDE"`
	Longitude   string `json:"LONGITUDE"`
}

func (NaicsRecord) Source() Source { return SourceNAICS }

func (n NaicsRecord) ToRawRecord() RawRecord {
	name := strings.TrimSpace(n.CompanyName)
	addr := Address{
		Street: strings.TrimSpace(n.Street),
		City:   strings.TrimSpace(n.City),
		State:  strings.TrimSpace(n.State),
		Zip:    strings.TrimSpace(n.Zip),
		County: strings.TrimSpace(n.County),
	}
	id := strings.TrimSpace(n.ID)
	synthetic := id == ""
	if synthetic {
		id = CompositeID(name, addr.Street)
	}
	return RawRecord{
		Source:      SourceNAICS,
		RawID:       id,
		SyntheticID: synthetic,
		Name:        name,
		Address:     addr,
		Coordinates: parseCoordinates(n.Latitude, n.Longitude),
		Attributes: Attributes{
			NAICSCode:  NormalizeNAICSCode(n.NAICSCode),
			NAICSTitle: strings.TrimSpace(n.NAICSTitle),
		},
	}
}

// MapsRecord is a row from a scraped map extract.
type MapsRecord struct {
	ID                   string `json:"ID"`
	OrganizationName     string `json:"OrganizationName"`
	OrganizationAddress  string `json:"OrganizationAddress"`
	City                 string `json:"City"`
	State                string `json:"State"`
	Zip                  string `json:"Zip"`
	OrganizationCategory string `json:"OrganizationCategory"`
	Latitude             string `json:"OrganizationLatitude"`
	Longitude            string `json:"OrganizationLongitude"`
	SourceFile           string `json:"SourceFile"`
}

func (MapsRecord) Source() Source { return SourceMapsExtract }

func (m MapsRecord) ToRawRecord() RawRecord {
	name := strings.TrimSpace(m.OrganizationName)
	addr := ParseOrganizationAddress(m.OrganizationAddress)
	if addr.City == "" {
		addr.City = strings.TrimSpace(m.City)
	}
	if addr.State == "" {
		addr.State = strings.TrimSpace(m.State)
	}
	if addr.Zip == "" {
		addr.Zip = strings.TrimSpace(m.Zip)
	}
	id := strings.TrimSpace(m.ID)
	synthetic := id == ""
	if synthetic {
		id = CompositeID(name, addr.Street)
	}
	return RawRecord{
		Source:      SourceMapsExtract,
		RawID:       id,
		SyntheticID: synthetic,
		Name:        name,
		Address:     addr,
		Coordinates: parseCoordinates(m.Latitude, m.Longitude),
		Attributes: Attributes{
			MapsCategory: strings.TrimSpace(m.OrganizationCategory),
			SourceFile:   strings.TrimSpace(m.SourceFile),
		},
	}
}

// ParseSourceRecord decodes a JSON row in the given source's layout and
// converts it to a RawRecord.
func ParseSourceRecord(source Source, payload []byte) (RawRecord, error) {
	var rec SourceRecord
	switch source {
	case SourceTankRegistry:
		var t TankRecord
		if err := json.Unmarshal(payload, &t); err != nil {
			return RawRecord{}, fmt.Errorf("parse %s record: %w", source, err)
		}
		rec = t
	case SourceNAICS:
		var n NaicsRecord
		if err := json.Unmarshal(payload, &n); err != nil {
			return RawRecord{}, fmt.Errorf("parse %s record: %w", source, err)
		}
		rec = n
	case SourceMapsExtract:
		var m MapsRecord
		if err := json.Unmarshal(payload, &m); err != nil {
			return RawRecord{}, fmt.Errorf("parse %s record: %w", source, err)
		}
		rec = m
	default:
		return RawRecord{}, fmt.Errorf("parse record: unknown source %d", int(source))
	}

	out := rec.ToRawRecord()
	out.IngestedAt = clock.Now().UTC()
	return out, nil
}

// CompositeID synthesizes a facility id when a source has no natural key.
func CompositeID(name, street string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		n = "UNKNOWN"
	}
	s := strings.ToUpper(strings.TrimSpace(street))
	if s == "" {
		s = "UNKNOWN"
	}
	return n + "_" + s
}

var (
	// orgAddressRe matches "<street>, <city>, <ST> <zip>" with an optional ZIP+4.
	orgAddressRe = regexp.MustCompile(`^(.+?),\s*([^,]+?),\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)$`)

	// orgAddressNoZipRe matches "<street>, <city>, <ST>".
	orgAddressNoZipRe = regexp.MustCompile(`^(.+?),\s*([^,]+?),\s*([A-Z]{2})$`)
)

// ParseOrganizationAddress splits a scraped single-line address such as
// "Address: 100 Main St, Doylestown, PA 18901". Lines that match neither
// pattern are kept whole as the street.
func ParseOrganizationAddress(line string) Address {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimPrefix(line, "Address:"))
	if line == "" {
		return Address{}
	}
	if m := orgAddressRe.FindStringSubmatch(line); m != nil {
		return Address{Street: strings.TrimSpace(m[1]), City: strings.TrimSpace(m[2]), State: m[3], Zip: m[4]}
	}
	if m := orgAddressNoZipRe.FindStringSubmatch(line); m != nil {
		return Address{Street: strings.TrimSpace(m[1]), City: strings.TrimSpace(m[2]), State: m[3]}
	}
	return Address{Street: line}
}

// parseCoordinates returns nil when either value is blank or unparsable, or
// when both are exactly zero.
func parseCoordinates(lat, lon string) *Coordinates {
	la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, errLon := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if errLat != nil || errLon != nil {
		return nil
	}
	if la == 0 && lo == 0 {
		return nil
	}
	return &Coordinates{Lat: la, Lon: lo}
}
