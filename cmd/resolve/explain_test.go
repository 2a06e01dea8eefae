package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-lead-etl/internal/resolver"
)

func TestExplain_NamesOnly(t *testing.T) {
	out := explain("Acme Fuel LLC", "ACME FUEL", "", "", resolver.DefaultConfig())

	assert.Equal(t, "acme fuel", out.CleanA)
	assert.Equal(t, out.CleanA, out.CleanB)
	assert.InDelta(t, 100.0, out.Similarity, 1e-9)
	assert.True(t, out.SameSource)
	assert.Nil(t, out.AddressA)
}

func TestExplain_ExactKey(t *testing.T) {
	out := explain("Acme Fuel LLC", "Acme Fuel", "100 Main St, Doylestown, PA 18901", "100 Main Street, Doylestown, PA 18901-1234", resolver.DefaultConfig())

	require.NotNil(t, out.AddressA)
	assert.Equal(t, "100 main street|18901", out.AddressA.ExactKey)
	assert.True(t, out.ExactKeyHit)
	assert.Empty(t, out.ExactKeyNote)
}

func TestExplain_ExactKeyNeedsZip(t *testing.T) {
	out := explain("A", "B", "100 Main St, Doylestown", "100 Main St, Doylestown, PA 18901", resolver.DefaultConfig())

	assert.False(t, out.ExactKeyHit)
	assert.NotEmpty(t, out.ExactKeyNote)
}

func TestExplainCmd_PrintsJSON(t *testing.T) {
	cmd := newExplainCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--name-a", "Acme Fuel LLC", "--name-b", "Acme Fuels"})

	require.NoError(t, cmd.Execute())

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Acme Fuel LLC", out["name_a"])
	assert.Contains(t, out, "similarity")
}
