package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/facility-lead-etl/internal/address"
	"github.com/couchcryptid/facility-lead-etl/internal/domain"
	"github.com/couchcryptid/facility-lead-etl/internal/fuzzy"
	"github.com/couchcryptid/facility-lead-etl/internal/resolver"
)

type explanation struct {
	NameA        string          `json:"name_a"`
	NameB        string          `json:"name_b"`
	CleanA       string          `json:"clean_a"`
	CleanB       string          `json:"clean_b"`
	Similarity   float64         `json:"similarity"`
	SameSource   bool            `json:"passes_same_source_threshold"`
	CrossSource  bool            `json:"passes_cross_source_threshold"`
	AddressA     *addressExplain `json:"address_a,omitempty"`
	AddressB     *addressExplain `json:"address_b,omitempty"`
	ExactKeyHit  bool            `json:"exact_key_match,omitempty"`
	ExactKeyNote string          `json:"exact_key_note,omitempty"`
}

type addressExplain struct {
	Input     string `json:"input"`
	StreetKey string `json:"street_key"`
	Zip5      string `json:"zip5,omitempty"`
	ExactKey  string `json:"exact_key,omitempty"`
}

func newExplainCmd() *cobra.Command {
	var nameA, nameB, addrA, addrB string

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how two names (and optionally addresses) compare",
		Example: `  resolve explain --name-a "Acme Fuel LLC" --name-b "ACME FUEL" \
    --address-a "100 Main St, Doylestown, PA 18901" --address-b "100 Main Street, Doylestown, PA 18901"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, explain(nameA, nameB, addrA, addrB, resolver.DefaultConfig()))
		},
	}

	cmd.Flags().StringVar(&nameA, "name-a", "", "first facility name")
	cmd.Flags().StringVar(&nameB, "name-b", "", "second facility name")
	cmd.Flags().StringVar(&addrA, "address-a", "", "first address as one line")
	cmd.Flags().StringVar(&addrB, "address-b", "", "second address as one line")
	_ = cmd.MarkFlagRequired("name-a")
	_ = cmd.MarkFlagRequired("name-b")

	return cmd
}

func explain(nameA, nameB, addrA, addrB string, cfg resolver.Config) explanation {
	score := fuzzy.Similarity(nameA, nameB)
	out := explanation{
		NameA:       nameA,
		NameB:       nameB,
		CleanA:      fuzzy.Clean(nameA),
		CleanB:      fuzzy.Clean(nameB),
		Similarity:  score,
		SameSource:  score >= cfg.SameSourceThreshold,
		CrossSource: score >= cfg.CrossSourceThreshold,
	}
	if addrA == "" && addrB == "" {
		return out
	}

	out.AddressA = explainAddress(addrA)
	out.AddressB = explainAddress(addrB)
	switch {
	case out.AddressA.ExactKey == "" || out.AddressB.ExactKey == "":
		out.ExactKeyNote = "exact matching needs a street and a zip on both sides"
	default:
		out.ExactKeyHit = out.AddressA.ExactKey == out.AddressB.ExactKey
	}
	return out
}

func explainAddress(line string) *addressExplain {
	a := domain.ParseOrganizationAddress(line)
	n := address.Normalize(address.Fields{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip})
	return &addressExplain{
		Input:     line,
		StreetKey: n.StreetKey,
		Zip5:      n.Zip5,
		ExactKey:  n.ExactKey(),
	}
}
