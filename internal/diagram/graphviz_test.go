package diagram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderImagePNG(t *testing.T) {
	model, err := Build(greetingTemplate(), nil)
	require.NoError(t, err)

	png, err := RenderImage(context.Background(), model, ImagePNG)
	require.NoError(t, err)
	require.NotEmpty(t, png)

	// PNG magic bytes: 0x89 P N G.
	assert.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderImageSVG(t *testing.T) {
	model, err := Build(nestedTemplate(), map[string]any{"items": 1})
	require.NoError(t, err)

	svg, err := RenderImage(context.Background(), model, ImageSVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestRenderImageUnsupportedFormat(t *testing.T) {
	model, err := Build(greetingTemplate(), nil)
	require.NoError(t, err)

	_, err = RenderImage(context.Background(), model, "gif")
	assert.ErrorContains(t, err, "unsupported image format")
}
