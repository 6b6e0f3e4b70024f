package datastore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntSliceJSONRoundTrip(t *testing.T) {
	ids := []int{3, 1, 2}

	raw, err := MarshalIntSliceToJSON(ids)
	require.NoError(t, err)
	require.JSONEq(t, "[3,1,2]", string(raw))

	back, err := UnmarshalJSONToIntSlice(raw)
	require.NoError(t, err)
	require.Equal(t, ids, back)
}

func TestMarshalIntSliceToJSON_NilBecomesEmptyArray(t *testing.T) {
	raw, err := MarshalIntSliceToJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestUnmarshalJSONToIntSlice_NullAndEmpty(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage("null"), json.RawMessage("")} {
		ids, err := UnmarshalJSONToIntSlice(raw)
		require.NoError(t, err)
		require.Empty(t, ids)
	}
}

func TestUnmarshalJSONToIntSlice_Malformed(t *testing.T) {
	_, err := UnmarshalJSONToIntSlice(json.RawMessage(`{"not":"an array"}`))
	require.Error(t, err)
}

func TestValidScenarioType(t *testing.T) {
	require.True(t, ValidScenarioType(""))
	require.True(t, ValidScenarioType(ScenarioTypeTaskCompletion))
	require.True(t, ValidScenarioType(ScenarioTypeInformationRetrieval))
	require.True(t, ValidScenarioType(ScenarioTypeConversationFlow))
	require.False(t, ValidScenarioType("freeform-chat"))
}
