package simplerights

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerritoryScopeJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		worldwide bool
		codes     []Territory
		encoded   string
	}{
		{name: "worldwide literal", input: `"worldwide"`, worldwide: true, encoded: `"worldwide"`},
		{name: "worldwide any case", input: `"WorldWide"`, worldwide: true, encoded: `"worldwide"`},
		{name: "code list", input: `["us","CA"," gb ","US"]`, codes: []Territory{"US", "CA", "GB"}, encoded: `["US","CA","GB"]`},
		{name: "empty list", input: `[]`, encoded: `[]`},
		{name: "null", input: `null`, encoded: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var scope TerritoryScope
			require.NoError(t, json.Unmarshal([]byte(tt.input), &scope))
			assert.Equal(t, tt.worldwide, scope.IsWorldwide())
			assert.Equal(t, tt.codes, scope.Codes())

			out, err := json.Marshal(scope)
			require.NoError(t, err)
			assert.JSONEq(t, tt.encoded, string(out))
		})
	}
}

func TestTerritoryScopeJSONRejectsOtherStrings(t *testing.T) {
	var scope TerritoryScope
	err := json.Unmarshal([]byte(`"europe"`), &scope)
	assert.ErrorIs(t, err, ErrInvalidRights)

	err = json.Unmarshal([]byte(`{"US":true}`), &scope)
	assert.ErrorIs(t, err, ErrInvalidRights)
}

func TestTerritoryScopeContains(t *testing.T) {
	assert.True(t, Worldwide().Contains("FR"))
	assert.True(t, Territories("US").Contains("us"))
	assert.False(t, Territories("US").Contains("FR"))
	assert.False(t, Territories().Contains("US"))
	assert.False(t, TerritoryScope{}.IsWorldwide())
}

func TestTerritoryScopeString(t *testing.T) {
	assert.Equal(t, "worldwide", Worldwide().String())
	assert.Equal(t, "US, CA, GB", Territories("US", "CA", "GB").String())
}

func TestAssetRightsJSONRoundTrip(t *testing.T) {
	r := openRights("a1")
	r.AllowedTerritories = Territories("US", "GB")
	r.MaxDownloads = intPtr(5)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"allowed_territories":["US","GB"]`)

	var decoded AssetRights
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.AllowedTerritories.Codes(), decoded.AllowedTerritories.Codes())
	assert.Equal(t, 5, *decoded.MaxDownloads)
	assert.True(t, r.ValidUntil.Equal(*decoded.ValidUntil))
}
