package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Path   string   `json:"path" yaml:"path"`
	Width  int      `json:"width" yaml:"width"`
	Labels []string `json:"labels" yaml:"labels"`
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, sample{Path: "/a.png", Width: 3, Labels: []string{"x"}}))

	out := buf.String()
	assert.Contains(t, out, `"path": "/a.png"`)
	assert.Contains(t, out, `"width": 3`)
	assert.Contains(t, out, "    \"x\"")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("}\n")))
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, sample{Path: "/a.png", Width: 3, Labels: []string{"x"}}))

	out := buf.String()
	assert.Contains(t, out, "path: /a.png\n")
	assert.Contains(t, out, "width: 3\n")
	assert.Contains(t, out, "labels:\n  - x\n")
}

func TestPrinterFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, p.Print(sample{Path: "/b.png"}))
	assert.Contains(t, buf.String(), `"path": "/b.png"`)
}
