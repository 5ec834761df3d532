package cds

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalAndNavigate(t *testing.T) {
	raw := []byte(`{
		"patient": {"birthDate": "1990-01-01"},
		"medications": {"proposed": [{"text": "Ibuprofen 400mg"}]}
	}`)

	var v Value
	require.NoError(t, json.Unmarshal(raw, &v))

	require.Equal(t, "1990-01-01", v.Get("patient").Get("birthDate").String())
	require.Equal(t, "Ibuprofen 400mg", v.GetPath("medications", "proposed").Index(0).Get("text").String())
}

func TestValue_CodingsExtractsCodeableConcept(t *testing.T) {
	raw := []byte(`{
		"medicationCodeableConcept": {
			"coding": [{"system": "http://www.nlm.nih.gov/research/umls/rxnorm", "code": "11289", "display": "Warfarin"}],
			"text": "Warfarin 5mg"
		}
	}`)

	var v Value
	require.NoError(t, json.Unmarshal(raw, &v))

	codings := v.Get("medicationCodeableConcept").Codings()
	require.Len(t, codings, 1)
	require.Equal(t, "11289", codings[0].Code)
	require.Equal(t, "Warfarin 5mg", v.Get("medicationCodeableConcept").Text())
}

func TestValue_FloatAccessor(t *testing.T) {
	raw := []byte(`{"valueQuantity": {"value": 145.5}}`)
	var v Value
	require.NoError(t, json.Unmarshal(raw, &v))

	f, ok := v.GetPath("valueQuantity", "value").Float64()
	require.True(t, ok)
	require.Equal(t, 145.5, f)

	_, ok = v.Get("valueQuantity").Float64()
	require.False(t, ok)
}

func TestValue_MissingPathIsZeroNotPanic(t *testing.T) {
	v := NewValue(map[string]interface{}{"a": map[string]interface{}{}})
	require.True(t, v.GetPath("a", "b", "c").IsZero())
	require.Equal(t, "", v.GetPath("a", "b", "c").String())
	require.Empty(t, v.Get("missing").Items())
	require.Empty(t, v.Get("missing").Codings())
}

func TestValue_IndexOutOfRangeIsZero(t *testing.T) {
	v := NewValue([]interface{}{"only-one"})
	require.True(t, v.Index(5).IsZero())
	require.Equal(t, "only-one", v.Index(0).String())
}
