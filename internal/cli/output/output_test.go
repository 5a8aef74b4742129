package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":         FormatTable,
		"table":    FormatTable,
		" TABLE ":  FormatTable,
		"json":     FormatJSON,
		"JSON":     FormatJSON,
		"yaml":     FormatYAML,
		"yml":      FormatYAML,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

type jobView struct{ rows [][]string }

func (v jobView) Headers() []string { return []string{"ID", "State", "Rows"} }
func (v jobView) Rows() [][]string  { return v.rows }

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	view := jobView{rows: [][]string{
		{"j-1", "COMPLETED", "10000"},
		{"j-2", "PAUSED", "3000"},
	}}
	require.NoError(t, PrintTable(&buf, view))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "j-2")
	assert.Contains(t, out, "PAUSED")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3) // header + two rows, no separators
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]int{"rows_seen": 5}))
	assert.Equal(t, "{\n  \"rows_seen\": 5\n}\n", buf.String())
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, map[string]string{"state": "PROCESSING"}))
	assert.Equal(t, "state: PROCESSING\n", buf.String())
}

func TestSuccesslnColor(t *testing.T) {
	var buf bytes.Buffer
	Successln(&buf, true, "Job paused")
	assert.Contains(t, buf.String(), "\033[32m")
	assert.Contains(t, buf.String(), "Job paused")

	buf.Reset()
	Successln(&buf, false, "Job paused")
	assert.Equal(t, "Job paused\n", buf.String())
}
