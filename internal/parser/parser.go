package parser

import (
	"appreviews/internal/sink"
	"appreviews/internal/storefront"
)

// Flatten converts one raw review into a sink.Row. Nested objects are
// collapsed into dotted keys, so {"attributes": {"rating": 5}} becomes
// {"attributes.rating": 5}. Empty objects produce no column; arrays are kept
// as values.
func Flatten(review map[string]interface{}) sink.Row {
	row := make(sink.Row, len(review))
	flattenInto(row, "", review)
	return row
}

func flattenInto(row sink.Row, prefix string, obj map[string]interface{}) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(row, key, nested)
			continue
		}
		row[key] = v
	}
}

// Rows flattens a batch of reviews preserving their order.
func Rows(reviews []storefront.Review) []sink.Row {
	rows := make([]sink.Row, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, Flatten(r))
	}
	return rows
}
