package estimation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBool(t *testing.T) {
	cases := map[string]bool{
		`true`:    true,
		`1`:       true,
		`"true"`:  true,
		`"1"`:     true,
		`"faz"`:   true,
		`"FAZ"`:   true,
		`false`:   false,
		`0`:       false,
		`"nao"`:   false,
		`null`:    false,
		`"false"`: false,
	}
	for in, want := range cases {
		var b FlexBool
		require.NoError(t, json.Unmarshal([]byte(in), &b), in)
		assert.Equal(t, want, bool(b), in)
	}
}

func TestParseQuotable(t *testing.T) {
	body := []byte(`{
		"threshold_passed": true,
		"suggested_value": "350.5",
		"best_match_valor_ref": 400,
		"best_match_score": 0.91,
		"best_match_status_faz": "faz",
		"best_match_id": "17"
	}`)
	e, err := Parse(body)
	require.NoError(t, err)
	assert.True(t, e.Quotable())
	require.NotNil(t, e.Value)
	assert.InDelta(t, 350.5, *e.Value, 0.001)
	require.NotNil(t, e.MatchScore)
	assert.InDelta(t, 0.91, *e.MatchScore, 0.001)
	require.NotNil(t, e.ReferenceID)
	assert.Equal(t, int64(17), *e.ReferenceID)
	assert.JSONEq(t, string(body), string(e.Raw))
}

func TestParseFallsBackToReferenceValue(t *testing.T) {
	e, err := Parse([]byte(`{"threshold_passed": true, "suggested_value": null, "best_match_valor_ref": 280, "best_match_status_faz": 1, "ref_image_id": 3}`))
	require.NoError(t, err)
	require.NotNil(t, e.Value)
	assert.Equal(t, 280.0, *e.Value)
	assert.Equal(t, int64(3), *e.ReferenceID)
}

func TestParseNotQuotable(t *testing.T) {
	e, err := Parse([]byte(`{"threshold_passed": false, "best_match_status_faz": true}`))
	require.NoError(t, err)
	assert.False(t, e.Quotable())

	e, err = Parse([]byte(`{"threshold_passed": true, "best_match_status_faz": "nao_faz"}`))
	require.NoError(t, err)
	assert.False(t, e.Quotable())
	assert.Nil(t, e.ReferenceID)
}
