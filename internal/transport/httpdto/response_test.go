package httpdto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEnvelopeCarriesTypedCode(t *testing.T) {
	resp := NewErrorResponse("messaging window closed", CodeWindowClosed)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, "messaging window closed", decoded["error"])
	assert.Equal(t, string(CodeWindowClosed), decoded["code"])
}

func TestSuccessEnvelopeOmitsErrorFields(t *testing.T) {
	raw, err := json.Marshal(NewSuccessResponse(map[string]int{"accepted": 3}))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["success"])
	assert.NotContains(t, decoded, "error")
	assert.NotContains(t, decoded, "code")
}
