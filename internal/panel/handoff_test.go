package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCtrcsFromObjects(t *testing.T) {
	raw := []byte(`[
		{"ctrc":"GRU1-1","cliente":"ACME"},
		{"numero":"GRU1-2"},
		{"Numero":"GRU1-3"},
		{"NumeroCTRC":"GRU1-4"},
		{"Ctrc":"GRU1-5"}
	]`)
	ctrcs, err := ExtractCtrcs(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"GRU1-1", "GRU1-2", "GRU1-3", "GRU1-4", "GRU1-5"}, ctrcs)
}

func TestExtractCtrcsAliasPrecedence(t *testing.T) {
	raw := []byte(`[{"ctrc":"PRIMARY","numero":"SECONDARY"}]`)
	ctrcs, err := ExtractCtrcs(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"PRIMARY"}, ctrcs)
}

func TestExtractCtrcsFromStrings(t *testing.T) {
	ctrcs, err := ExtractCtrcs([]byte(`["GRU1-1","GRU1-2"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"GRU1-1", "GRU1-2"}, ctrcs)
}

func TestExtractCtrcsDropsUnusableElements(t *testing.T) {
	raw := []byte(`[{"cliente":"ACME"},{"ctrc":""},"",{"numero":"GRU1-2"}]`)
	ctrcs, err := ExtractCtrcs(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"GRU1-2"}, ctrcs)
}

func TestExtractCtrcsNumericAlias(t *testing.T) {
	ctrcs, err := ExtractCtrcs([]byte(`[{"numero":395751}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"395751"}, ctrcs)
}

func TestExtractCtrcsRejectsNonArray(t *testing.T) {
	_, err := ExtractCtrcs([]byte(`{"ctrc":"GRU1-1"}`))
	require.Error(t, err)
}
