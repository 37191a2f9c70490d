package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelJSONPlain(t *testing.T) {
	parsed, err := ParseModelJSON(`{"identifier": "top", "category": "T-Shirt"}`)
	require.NoError(t, err)
	assert.Equal(t, "top", parsed["identifier"])
}

func TestParseModelJSONStripsCodeFences(t *testing.T) {
	parsed, err := ParseModelJSON("```json\n{\"identifier\": \"top\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "top", parsed["identifier"])
}

func TestParseModelJSONSalvagesSurroundingText(t *testing.T) {
	parsed, err := ParseModelJSON(`Sure! Here is the result: {"identifier": "bottom", "category": "Jeans"} Hope that helps.`)
	require.NoError(t, err)
	assert.Equal(t, "bottom", parsed["identifier"])
	assert.Equal(t, "Jeans", parsed["category"])
}

func TestParseModelJSONRejectsNullLiteral(t *testing.T) {
	// "null" decodes without error but yields a nil map; it must not be
	// treated as a successful parse.
	_, err := ParseModelJSON("null")
	assert.Error(t, err)

	_, err = ParseModelJSON("```json\nnull\n```")
	assert.Error(t, err)
}

func TestParseModelJSONRejectsNonJSON(t *testing.T) {
	_, err := ParseModelJSON("I could not analyze this image.")
	assert.Error(t, err)

	_, err = ParseModelJSON("prefix { broken json } suffix")
	assert.Error(t, err)
}
