package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := New()
	chunks := c.Chunk("a short document", DefaultOptions())

	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkWindowsWithOverlap(t *testing.T) {
	text := strings.Repeat("x", 4000)
	c := New()
	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 1500, ChunkOverlap: 200})

	// step 1300: [0,1500) [1300,2800) [2600,4000)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1500, len(chunks[0].Content))
	assert.Equal(t, 1500, len(chunks[1].Content))
	assert.Equal(t, 1400, len(chunks[2].Content))

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestChunkOverlapPreservesBoundaryText(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 4000; i++ {
		sb.WriteString("word")
	}
	text := sb.String()

	c := New()
	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 1500, ChunkOverlap: 200})
	require.GreaterOrEqual(t, len(chunks), 2)

	first := chunks[0].Content
	second := chunks[1].Content
	assert.Equal(t, first[len(first)-200:], second[:200])
}

func TestChunkWindowsCoverWholeText(t *testing.T) {
	text := strings.Repeat("abcdefghij", 500)
	c := New()
	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 1200, ChunkOverlap: 150})

	// Strip each chunk's leading overlap and the remainder must reassemble
	// the original text exactly.
	var sb strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			sb.WriteString(ch.Content)
			continue
		}
		sb.WriteString(ch.Content[150:])
	}
	assert.Equal(t, text, sb.String())
}

func TestChunkSeparatorSplitsFirst(t *testing.T) {
	text := "section one" + DefaultSeparator + "section two" + DefaultSeparator + "section three"
	c := New()
	chunks := c.Chunk(text, DefaultOptions())

	require.Len(t, chunks, 3)
	assert.Equal(t, "section one", chunks[0].Content)
	assert.Equal(t, "section two", chunks[1].Content)
	assert.Equal(t, "section three", chunks[2].Content)
}

func TestChunkSkipsEmptySegments(t *testing.T) {
	text := DefaultSeparator + "  \n " + DefaultSeparator + "real content" + DefaultSeparator
	c := New()
	chunks := c.Chunk(text, DefaultOptions())

	require.Len(t, chunks, 1)
	assert.Equal(t, "real content", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkIndexOrderedAcrossSegments(t *testing.T) {
	big := strings.Repeat("y", 3000)
	text := "intro" + DefaultSeparator + big
	c := New()
	chunks := c.Chunk(text, ChunkOptions{ChunkSize: 1500, ChunkOverlap: 200, Separator: DefaultSeparator})

	require.Greater(t, len(chunks), 2)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
	assert.Equal(t, "intro", chunks[0].Content)
}

func TestChunkZeroOptionsUseDefaults(t *testing.T) {
	text := strings.Repeat("z", 2000)
	c := New()
	chunks := c.Chunk(text, ChunkOptions{})

	// default size 1500, no overlap configured
	require.Len(t, chunks, 2)
	assert.Equal(t, 1500, len(chunks[0].Content))
	assert.Equal(t, 500, len(chunks[1].Content))
}

func TestChunkEmptyText(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk("", DefaultOptions()))
	assert.Empty(t, c.Chunk("   \n\t ", DefaultOptions()))
}
