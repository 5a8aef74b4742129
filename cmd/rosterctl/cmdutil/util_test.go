package cmdutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/roster/internal/cli/output"
)

func TestParseMappingArgs(t *testing.T) {
	good := []struct {
		name  string
		input []string
		want  map[string]string
	}{
		{"empty", nil, map[string]string{}},
		{"single", []string{"Full Name=fullName"}, map[string]string{"Full Name": "fullName"}},
		{"multiple", []string{"Full Name=fullName", "E-Mail=email"},
			map[string]string{"Full Name": "fullName", "E-Mail": "email"}},
		{"spaces trimmed", []string{"  Email = email "}, map[string]string{"Email": "email"}},
	}
	for _, tt := range good {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMappingArgs(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	bad := []struct {
		name  string
		input []string
	}{
		{"missing separator", []string{"Email"}},
		{"empty source", []string{"=email"}},
		{"empty target", []string{"Email="}},
		{"duplicate source column", []string{"Email=email", "Email=phone"}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMappingArgs(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestBoolToYesNo(t *testing.T) {
	assert.Equal(t, "yes", BoolToYesNo(true))
	assert.Equal(t, "no", BoolToYesNo(false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcdefghij", Truncate("abcdefghij", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijk", 10))
	assert.Equal(t, "a...", Truncate("abcdef", 2))
}

// stubRenderer gives PrintOutput a fixed table to draw.
type stubRenderer struct {
	headers []string
	rows    [][]string
}

func (r stubRenderer) Headers() []string { return r.headers }
func (r stubRenderer) Rows() [][]string  { return r.rows }

func TestPrintOutputFormats(t *testing.T) {
	renderer := stubRenderer{headers: []string{"NAME"}, rows: [][]string{{"foo"}, {"bar"}}}
	data := []string{"foo", "bar"}

	t.Run("json", func(t *testing.T) {
		Flags.Output = "json"
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, data, false, "No items", renderer))
		assert.Contains(t, buf.String(), "foo")
		assert.Contains(t, buf.String(), "bar")
	})

	t.Run("yaml", func(t *testing.T) {
		Flags.Output = "yaml"
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, data, false, "No items", renderer))
		assert.Equal(t, "- foo\n- bar\n", buf.String())
	})

	t.Run("table with rows", func(t *testing.T) {
		Flags.Output = "table"
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, data, false, "No jobs found.", renderer))
		assert.Contains(t, buf.String(), "NAME")
	})

	t.Run("table empty prints placeholder", func(t *testing.T) {
		Flags.Output = "table"
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, []string{}, true, "No jobs found.", stubRenderer{headers: []string{"NAME"}}))
		assert.Equal(t, "No jobs found.\n", buf.String())
	})
}

func TestGetOutputFormatParsed(t *testing.T) {
	for flag, want := range map[string]output.Format{
		"table": output.FormatTable,
		"json":  output.FormatJSON,
		"yaml":  output.FormatYAML,
	} {
		Flags.Output = flag
		got, err := GetOutputFormatParsed()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	Flags.Output = "invalid"
	_, err := GetOutputFormatParsed()
	assert.Error(t, err)
}

func TestFlagAccessors(t *testing.T) {
	Flags.NoColor = true
	assert.True(t, IsColorDisabled())
	Flags.NoColor = false
	assert.False(t, IsColorDisabled())

	Flags.Verbose = true
	assert.True(t, IsVerbose())
	Flags.Verbose = false
	assert.False(t, IsVerbose())
}
