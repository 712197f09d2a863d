package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderASCIIGreeting(t *testing.T) {
	model, err := Build(greetingTemplate(), nil)
	require.NoError(t, err)

	output := RenderASCII(model)
	assert.NotEmpty(t, output)

	assert.Contains(t, output, "=== Greeting ===")

	// Box-drawing characters.
	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "┐")
	assert.Contains(t, output, "└")
	assert.Contains(t, output, "┘")
	assert.Contains(t, output, "│")
	assert.Contains(t, output, "▼")

	assert.Contains(t, output, "Start")
	assert.Contains(t, output, "End")
	assert.Contains(t, output, "'Hello, '")
	assert.Contains(t, output, "(text)")
	assert.Contains(t, output, "(print)")

	assert.Contains(t, output, "--- seg1 expr ---")
	assert.Contains(t, output, "  | upper\n")
	assert.Contains(t, output, "    target: user.name\n")
}

func TestRenderASCIIOutlineDepth(t *testing.T) {
	model, err := Build(nestedTemplate(), map[string]any{"items": 1})
	require.NoError(t, err)

	output := RenderASCII(model)
	assert.Contains(t, output, "  let\n")
	assert.Contains(t, output, "    total: | length\n")
	assert.Contains(t, output, "      target: items [OK]\n")
	assert.Contains(t, output, "    body: is even\n")
	assert.Contains(t, output, "    end: limit [MISSING]\n")
}

func TestRenderASCIIBoxWidth(t *testing.T) {
	box := makeBox(&Node{ID: "seg0", Label: "'héllo'", Kind: NodeKindText})
	require.Len(t, box.lines, 4)
	for _, line := range box.lines {
		assert.Equal(t, box.width, len([]rune(line)), line)
	}
	assert.True(t, strings.HasPrefix(box.lines[1], "│ 'héllo'"))
}

func TestStatusTag(t *testing.T) {
	assert.Equal(t, "[OK]", statusTag(StatusBound))
	assert.Equal(t, "[MISSING]", statusTag(StatusUnbound))
	assert.Equal(t, "", statusTag("other"))
}
