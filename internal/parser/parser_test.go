package parser

import (
	"encoding/json"
	"testing"

	"appreviews/internal/sink"
	"appreviews/internal/storefront"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	review := map[string]interface{}{
		"id":   "9876",
		"type": "user-reviews",
		"attributes": map[string]interface{}{
			"rating":   json.Number("4"),
			"isEdited": false,
			"developerResponse": map[string]interface{}{
				"id":   json.Number("1"),
				"body": "Merci !",
			},
			"tags":  []interface{}{"a", "b"},
			"extra": map[string]interface{}{},
		},
		"app_id": "123",
	}

	expected := sink.Row{
		"id":                                "9876",
		"type":                              "user-reviews",
		"attributes.rating":                 json.Number("4"),
		"attributes.isEdited":               false,
		"attributes.developerResponse.id":   json.Number("1"),
		"attributes.developerResponse.body": "Merci !",
		"attributes.tags":                   []interface{}{"a", "b"},
		"app_id":                            "123",
	}

	if diff := cmp.Diff(expected, Flatten(review)); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsKeepsOrder(t *testing.T) {
	rows := Rows([]storefront.Review{
		{"id": "1"},
		{"id": "2"},
		{"id": "3"},
	})

	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Equal(t, string(rune('1'+i)), row["id"])
	}
}

func TestRowsEmpty(t *testing.T) {
	require.Empty(t, Rows(nil))
}

func TestFlatten_EmptyObjectsAddNoColumn(t *testing.T) {
	row := Flatten(map[string]interface{}{
		"id": "1",
		"attributes": map[string]interface{}{
			"developerResponse": map[string]interface{}{},
		},
	})

	require.Equal(t, sink.Row{"id": "1"}, row)
}
