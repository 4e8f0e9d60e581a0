package chunker

import (
	"strings"
)

// DefaultSeparator is the explicit section delimiter recognized in uploaded
// documents. Text is split on it before any size-based splitting happens.
const DefaultSeparator = "=================================================="

type ChunkOptions struct {
	ChunkSize    int    // maximum chunk size in runes
	ChunkOverlap int    // overlap between adjacent windows, in runes
	Separator    string // section delimiter tried before size-based splitting
}

type TextChunk struct {
	Content string
	Index   int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		Separator:    DefaultSeparator,
	}
}

type Chunker struct{}

func New() *Chunker {
	return &Chunker{}
}

// Chunk splits text into ordered chunks. The separator is applied first;
// any segment still larger than ChunkSize is split into fixed windows that
// overlap by ChunkOverlap so context survives the boundary. Index is the
// source-order sequence across the whole document.
func (c *Chunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1500
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}

	segments := []string{text}
	if opts.Separator != "" {
		segments = strings.Split(text, opts.Separator)
	}

	var chunks []TextChunk
	idx := 0
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		for _, win := range windows(seg, opts.ChunkSize, opts.ChunkOverlap) {
			if strings.TrimSpace(win) == "" {
				continue
			}
			chunks = append(chunks, TextChunk{Content: win, Index: idx})
			idx++
		}
	}
	return chunks
}

// windows slices text into runs of at most size runes, each starting
// overlap runes before the previous one ended.
func windows(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
