package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONBytes(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	require.NoError(t, ParseJSONBytes([]byte(`{"title":"Soup","extra":1}`), &v))
	assert.Equal(t, "Soup", v.Title)

	err := ParseJSONBytesStrict([]byte(`{"title":"Soup","extra":1}`), &v)
	assert.Error(t, err)

	err = ParseJSONBytes([]byte(`{"title":"Soup"} {"title":"Stew"}`), &v)
	assert.Error(t, err)
}

func TestDecodeJSONUsesNumbers(t *testing.T) {
	var m map[string]interface{}
	require.NoError(t, DecodeJSON(strings.NewReader(`{"idMeal":"52772","price":123.45,"servings":4,"name":" Soup ","none":null}`), &m))

	assert.Equal(t, "52772", StringField(m, "idMeal"))
	assert.Equal(t, "4", StringField(m, "servings"))
	assert.Equal(t, "Soup", StringField(m, "name"))
	assert.Equal(t, "", StringField(m, "none"))
	assert.Equal(t, "", StringField(m, "missing"))

	assert.InDelta(t, 123.45, NumberField(m, "price"), 1e-9)
	assert.InDelta(t, 52772, NumberField(m, "idMeal"), 1e-9)
	assert.Equal(t, 0.0, NumberField(m, "name"))
	assert.Equal(t, 0.0, NumberField(m, "none"))
}

func TestToJSON(t *testing.T) {
	s, err := ToJSON(map[string][]string{"ingredients": {"rice", "egg"}})
	require.NoError(t, err)
	assert.Equal(t, `{"ingredients":["rice","egg"]}`, s)

	_, err = ToJSON(make(chan int))
	assert.Error(t, err)
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"Rice", "egg"}, UniqueStrings([]string{"Rice", " egg ", "rice", "", "EGG"}))
	assert.Empty(t, UniqueStrings(nil))
	assert.True(t, ContainsFold([]string{"Italian", "Mexican"}, " mexican"))
	assert.False(t, ContainsFold([]string{"Italian"}, "thai"))
}
