package sink

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSink_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s, err := NewCSVSink(dir, ';')
	require.NoError(t, err)

	table := NewTable()
	table.Append(
		Row{"rating": json.Number("5"), "review_text": "Très bien; vraiment", "app_name": "x"},
		Row{"rating": json.Number("1"), "app_name": "x", "edited": true},
	)

	require.NoError(t, s.Write("run_x_reviews.csv", table))

	data, err := os.ReadFile(filepath.Join(dir, "run_x_reviews.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"app_name;edited;rating;review_text\n"+
			"x;;5;\"Très bien; vraiment\"\n"+
			"x;true;1;\n",
		string(data))
}

func TestCSVSink_EmptyTableWritesHeaderOnly(t *testing.T) {
	s, err := NewCSVSink(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, s.Write("empty.csv", NewTable()))

	data, err := os.ReadFile(s.Path("empty.csv"))
	require.NoError(t, err)
	assert.Equal(t, "\n", string(data))
}

func TestCSVSink_Overwrites(t *testing.T) {
	s, err := NewCSVSink(t.TempDir(), ',')
	require.NoError(t, err)

	long := NewTable()
	long.Append(Row{"a": "1"}, Row{"a": "2"}, Row{"a": "3"})
	short := NewTable()
	short.Append(Row{"a": "9"})

	require.NoError(t, s.Write("f.csv", long))
	require.NoError(t, s.Write("f.csv", short))

	data, err := os.ReadFile(s.Path("f.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a\n9\n", string(data))
}

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		in       interface{}
		expected string
	}{
		{nil, ""},
		{"text", "text"},
		{json.Number("4"), "4"},
		{true, "true"},
		{float64(4.5), "4.5"},
		{float64(123456789), "123456789"},
		{7, "7"},
		{[]interface{}{"a", json.Number("1")}, `["a",1]`},
		{map[string]interface{}{"k": "v"}, `{"k":"v"}`},
	}

	for _, test := range testCases {
		assert.Equal(t, test.expected, FormatValue(test.in))
	}
}

type flakySink struct {
	failures int
	calls    int
}

func (f *flakySink) Write(string, *Table) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("disk busy")
	}
	return nil
}

func TestRetrySink(t *testing.T) {
	var slept []time.Duration
	inner := &flakySink{failures: 2}
	r := NewRetrySink(inner, 3, time.Second)
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.NoError(t, r.Write("f.csv", NewTable()))
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

func TestRetrySink_GivesUp(t *testing.T) {
	inner := &flakySink{failures: 10}
	r := NewRetrySink(inner, 0, time.Second)
	r.sleep = func(time.Duration) { t.Fatal("single attempt must not sleep") }

	require.EqualError(t, r.Write("f.csv", NewTable()), "disk busy")
	assert.Equal(t, 1, inner.calls)
}

func TestCSVSink_RejectsNamesLeavingOutputDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "out")
	s, err := NewCSVSink(dir, ';')
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../escaped.csv", "a/b.csv", `..\escaped.csv`} {
		err := s.Write(name, NewTable())
		require.ErrorIs(t, err, ErrInvalidName, name)
	}

	_, err = os.Stat(filepath.Join(root, "escaped.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRetrySink_InvalidNameNotRetried(t *testing.T) {
	s, err := NewCSVSink(t.TempDir(), ';')
	require.NoError(t, err)
	r := NewRetrySink(s, 3, time.Second)
	r.sleep = func(time.Duration) { t.Fatal("invalid names must not be retried") }

	require.ErrorIs(t, r.Write("../x.csv", NewTable()), ErrInvalidName)
}
