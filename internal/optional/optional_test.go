package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patch struct {
	Title    Value[string]   `json:"title"`
	AssetIDs Value[[]string] `json:"assetIds"`
}

func TestOmittedVersusEmptyList(t *testing.T) {
	var omitted patch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &omitted))
	assert.True(t, omitted.Title.Set)
	assert.Equal(t, "x", omitted.Title.V)
	assert.False(t, omitted.AssetIDs.Set)

	var cleared patch
	require.NoError(t, json.Unmarshal([]byte(`{"assetIds":[]}`), &cleared))
	assert.False(t, cleared.Title.Set)
	ids, ok := cleared.AssetIDs.Get()
	assert.True(t, ok)
	assert.Empty(t, ids)
}

func TestNullIsOmitted(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"title":null,"assetIds":null}`), &p))
	assert.False(t, p.Title.Set)
	assert.False(t, p.AssetIDs.Set)
}

func TestEmptyStringIsSupplied(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"title":""}`), &p))
	v, ok := p.Title.Get()
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestWrongTypeFails(t *testing.T) {
	var p patch
	assert.Error(t, json.Unmarshal([]byte(`{"assetIds":"a1"}`), &p))
}

func TestMarshal(t *testing.T) {
	out, err := json.Marshal(patch{Title: Of("hello")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"hello","assetIds":null}`, string(out))
}
