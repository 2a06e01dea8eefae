package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

type stubGeocoder struct {
	queries []string
}

func (s *stubGeocoder) ForwardGeocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	s.queries = append(s.queries, query)
	return domain.GeocodingResult{Lat: 40.31, Lon: -75.13, Confidence: 0.9}, nil
}

func TestCountyKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bucks", "bucks"},
		{"BUCKS COUNTY", "bucks"},
		{"  Delaware County ", "delaware"},
		{"", ""},
		{"County", "county"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, countyKey(tt.in))
		})
	}
}

func TestPreparer_Prepare(t *testing.T) {
	geo := &stubGeocoder{}
	p := NewPreparer(geo, []string{"Bucks County", "Montgomery"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	t.Run("classifies and geocodes", func(t *testing.T) {
		raw := domain.RawEvent{Value: []byte(`{"PF_SITE_ID":"T-1","PF_NAME":"Acme Fuel","LOCAD_PF_ADDRESS_1":"100 Main St","LOCAD_PF_CITY":"Doylestown","LOCAD_PF_STATE":"PA","LOCAD_PF_ZIP_CODE":"18901","PF_COUNTY_NAME":"BUCKS","SUBSTANCE_CODE":"DIESL","CAPACITY":"12,000","STATUS_CODE":"C"}`)}
		rec, keep, err := p.Prepare(ctx, domain.SourceTankRegistry, raw)
		require.NoError(t, err)
		require.True(t, keep)
		assert.True(t, rec.Flags.DieselLike)
		assert.True(t, rec.Flags.ActiveLike)
		require.NotNil(t, rec.Coordinates)
		assert.Equal(t, domain.GeoSourceForward, rec.GeoSource)
		assert.Equal(t, []string{"100 Main St, Doylestown, PA 18901"}, geo.queries)
	})

	t.Run("filters other counties", func(t *testing.T) {
		raw := domain.RawEvent{Value: []byte(`{"ID":"N-2","COMPANY NAME":"Red Rose Haulers","STREET ADDRESS":"1 King St","COUNTY":"Lancaster"}`)}
		_, keep, err := p.Prepare(ctx, domain.SourceNAICS, raw)
		require.NoError(t, err)
		assert.False(t, keep)
	})

	t.Run("keeps records without county", func(t *testing.T) {
		raw := domain.RawEvent{Value: []byte(`{"ID":"M-1","OrganizationName":"Acme Fuel","OrganizationAddress":"Address: 100 Main St, Doylestown, PA 18901","OrganizationLatitude":"40.3101","OrganizationLongitude":"-75.1299"}`)}
		rec, keep, err := p.Prepare(ctx, domain.SourceMapsExtract, raw)
		require.NoError(t, err)
		assert.True(t, keep)
		assert.Equal(t, domain.GeoSourceOriginal, rec.GeoSource)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		_, _, err := p.Prepare(ctx, domain.SourceNAICS, domain.RawEvent{Value: []byte(`[`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse naics record")
	})
}
