package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceYAML = `
name: invoice
template:
  - text: "Due "
  - print:
      filter:
        name: date
        target: {var: due}
        args: [{value: {literal: "%Y-%m-%d"}}]
  - text: " for "
  - print: {var: customer}
data:
  customer: Acme
  due: "2024-03-05T10:00:00Z"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunRender(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, "invoice.yaml", invoiceYAML)

	var stdout, stderr bytes.Buffer
	code := runRender(context.Background(), []string{path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Due 2024-03-05 for Acme", stdout.String())
}

func TestRunRender_Stdin(t *testing.T) {
	isolateHome(t)
	var stdout, stderr bytes.Buffer
	code := runRender(context.Background(), []string{"-"}, strings.NewReader(invoiceYAML), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Due 2024-03-05 for Acme", stdout.String())
}

func TestRunRender_DataFile(t *testing.T) {
	isolateHome(t)
	doc := writeFile(t, "invoice.yaml", invoiceYAML)
	data := writeFile(t, "data.json", `{"customer": "Globex"}`)

	var stdout, stderr bytes.Buffer
	code := runRender(context.Background(), []string{"-data", data, doc}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Due 2024-03-05 for Globex", stdout.String())
}

func TestRunRender_ManyDocuments(t *testing.T) {
	isolateHome(t)
	first := writeFile(t, "a.json", `{"template": [{"text": "one;"}]}`)
	broken := writeFile(t, "b.json", `{"template": [{"print": {"filter": {"name": "abs", "target": {"literal": "x"}}}}]}`)
	last := writeFile(t, "c.json", `{"template": [{"text": "three;"}]}`)

	var stdout, stderr bytes.Buffer
	code := runRender(context.Background(), []string{"-parallel", "2", first, broken, last}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, "one;three;", stdout.String())
	assert.Contains(t, stderr.String(), broken+": Error: [TYPE_ERROR]")
}

func TestRunRender_StrictFlag(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, "doc.json", `{"template": [{"text": "Hi "}, {"print": {"var": "who"}}]}`)

	var stdout, stderr bytes.Buffer
	code := runRender(context.Background(), []string{path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Hi ", stdout.String())

	stdout.Reset()
	code = runRender(context.Background(), []string{"-strict", path}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "[UNRESOLVED_REFERENCE]")
}

func TestRunRender_Errors(t *testing.T) {
	isolateHome(t)
	tests := []struct {
		name string
		args func(t *testing.T) []string
		code int
		want string
	}{
		{"no path", func(*testing.T) []string { return nil }, 2, "expected at least one document path"},
		{"missing file", func(*testing.T) []string { return []string{"/does/not/exist.json"} }, 1, "Error:"},
		{"unknown filter", func(t *testing.T) []string {
			return []string{writeFile(t, "doc.json", `{"template": [{"print": {"filter": {"name": "shout", "target": {"var": "x"}}}}]}`)}
		}, 1, "[UNKNOWN_EXTENSION]"},
		{"bad timezone flag", func(t *testing.T) []string {
			return []string{"-timezone", "Nowhere/Else", writeFile(t, "doc.json", `{"template": []}`)}
		}, 1, "invalid timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runRender(context.Background(), tt.args(t), nil, &stdout, &stderr)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestRunDiagram(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, "invoice.yaml", invoiceYAML)

	var stdout, stderr bytes.Buffer
	code := runDiagram(context.Background(), []string{path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "=== invoice ===")
	assert.Contains(t, stdout.String(), "target: due [OK]")

	stdout.Reset()
	out := filepath.Join(t.TempDir(), "invoice.mmd")
	code = runDiagram(context.Background(), []string{"-format", "mermaid", "-o", out, path}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "graph TD")
}

func TestRunDiagram_UnknownFormat(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, "invoice.yaml", invoiceYAML)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runDiagram(context.Background(), []string{"-format", "gif", path}, nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown format")
}

func TestRunExtensions(t *testing.T) {
	isolateHome(t)

	var stdout, stderr bytes.Buffer
	code := runExtensions([]string{"-kind", "test"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "KIND"))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "test "), line)
	}
	assert.Contains(t, stdout.String(), "schema")
}

func TestRunExtensions_UnknownKind(t *testing.T) {
	isolateHome(t)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, runExtensions([]string{"-kind", "macro"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown kind")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Equal(t, "dev\n", buf.String())
}
