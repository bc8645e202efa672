package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTest(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeText, false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		r, _, _ := newTest(tt.mode, tt.isTTY)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%q tty=%v", tt.mode, tt.isTTY)
	}
}

func TestMarkdownOutput(t *testing.T) {
	r, out, _ := newTest(ModeAuto, false)

	r.Header(1, "Export")
	r.KeyValue("Rows", "3")
	r.Table([]string{"Input", "Valid"}, [][]string{{"001", "no"}})
	r.Success("done")

	s := out.String()
	assert.Contains(t, s, "# Export\n")
	assert.Contains(t, s, "- **Rows:** 3")
	assert.Contains(t, s, "| Input | Valid |")
	assert.Contains(t, s, "| 001 | no |")
	assert.Contains(t, s, "**done**")
	assert.False(t, ansiPattern.MatchString(s))
}

func TestTextTable(t *testing.T) {
	r, out, _ := newTest(ModeText, false)

	r.Table([]string{"Input", "Valid"}, [][]string{{"001", "no"}})

	s := out.String()
	assert.Contains(t, s, "INPUT")
	assert.Contains(t, s, "│")
	assert.Contains(t, s, "001")
}

func TestWarningGoesToErrWriter(t *testing.T) {
	r, out, errOut := newTest(ModeText, false)
	r.Warning("2 conflicting rows")

	assert.Empty(t, out.String())
	assert.Equal(t, "warning: 2 conflicting rows\n", errOut.String())
}

func TestJSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.JSON(IDInfo{Input: "x", Valid: false}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "x", got["input"])
	assert.NotContains(t, got, "id15")
	assert.True(t, strings.HasPrefix(out.String(), "{\n  "))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Stats", FormatHeader(2, "Stats"))
	assert.Equal(t, "# Stats", FormatHeader(0, "Stats"))
	assert.Equal(t, "- **Key:** v", FormatKeyValue("Key", "v"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
