package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBValueAndScanRoundTrip(t *testing.T) {
	j := JSONB(`{"region":"us-east"}`)

	v, err := j.Value()
	require.NoError(t, err)

	var scanned JSONB
	require.NoError(t, scanned.Scan(v.([]byte)))
	assert.JSONEq(t, string(j), string(scanned))
}

func TestJSONBMarshalUnmarshal(t *testing.T) {
	j := JSONB(`{"a":1}`)
	raw, err := json.Marshal(j)
	require.NoError(t, err)

	var out JSONB
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.JSONEq(t, string(j), string(out))
}

func TestJSONBScanEmptyBytesYieldsNull(t *testing.T) {
	var j JSONB
	require.NoError(t, j.Scan([]byte{}))
	assert.Equal(t, "null", string(j))
}
