package sink

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTableAppend(t *testing.T) {
	table := NewTable()
	table.Append(
		Row{"b": 1, "a": 2},
		Row{"a": 3, "c": 4},
	)
	table.Append(Row{"d": 5, "a": 6})

	require.Equal(t, []string{"a", "b", "c", "d"}, table.Columns)
	require.Equal(t, 3, table.Len())
}

func TestTableConcat(t *testing.T) {
	first := NewTable()
	first.Append(Row{"x": 1, "y": 2})
	second := NewTable()
	second.Append(Row{"z": 3, "y": 4})

	first.Concat(second)

	require.Equal(t, []string{"x", "y", "z"}, first.Columns)
	require.Equal(t, 2, first.Len())
	require.Equal(t, Row{"z": 3, "y": 4}, first.Rows[1])
}

func TestTableDropAndRename(t *testing.T) {
	table := NewTable()
	table.Append(
		Row{"id": "1", "attributes.rating": 5, "attributes.title": "ok", "app_id": "123"},
		Row{"id": "2", "attributes.rating": 4, "app_id": "123"},
	)

	table.Drop([]string{"id", "missing"})
	table.Rename(map[string]string{
		"attributes.rating": "rating",
		"attributes.title":  "review_title",
		"attributes.absent": "never",
	})

	expected := &Table{
		Columns: []string{"app_id", "rating", "review_title"},
		Rows: []Row{
			{"rating": 5, "review_title": "ok", "app_id": "123"},
			{"rating": 4, "app_id": "123"},
		},
	}
	if diff := cmp.Diff(expected, table); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestTableTransformsAreIdempotent(t *testing.T) {
	drop := []string{"id", "type"}
	rename := map[string]string{"attributes.date": "review_date"}

	build := func() *Table {
		table := NewTable()
		table.Append(Row{"app_name": "x", "review_date": "2024-01-01", "rating": 3})
		return table
	}

	once := build()
	once.Drop(drop)
	once.Rename(rename)

	twice := build()
	for i := 0; i < 2; i++ {
		twice.Drop(drop)
		twice.Rename(rename)
	}

	if diff := cmp.Diff(build(), once); diff != "" {
		t.Fatalf("transform changed untargeted data (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("transform not idempotent (-want +got):\n%s", diff)
	}
}

func TestTableRenameOntoExistingColumn(t *testing.T) {
	table := NewTable()
	table.Append(Row{"a": 1, "b": 2})

	table.Rename(map[string]string{"b": "a"})

	require.Equal(t, []string{"a"}, table.Columns)
	require.Equal(t, Row{"a": 2}, table.Rows[0])
}

func TestTableRenameSwap(t *testing.T) {
	table := NewTable()
	table.Append(Row{"a": 1, "b": 2})

	table.Rename(map[string]string{"a": "b", "b": "a"})

	require.Equal(t, []string{"b", "a"}, table.Columns)
	require.Equal(t, Row{"a": 2, "b": 1}, table.Rows[0])
}
