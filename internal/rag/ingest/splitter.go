package ingest

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Splitter cuts text into overlapping chunks on a separator boundary.
// Sizes are counted in characters, not bytes.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

func NewSplitter(size int, overlap int, separator string) (Splitter, error) {
	if size <= 0 {
		return Splitter{}, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return Splitter{}, errors.New("chunk overlap must be smaller than chunk size")
	}
	return Splitter{ChunkSize: size, ChunkOverlap: overlap, Separator: separator}, nil
}

func (s Splitter) Split(text string) []string {
	var pieces []string
	for _, part := range s.splitOnSeparator(text) {
		pieces = append(pieces, s.window(part)...)
	}
	return s.merge(pieces)
}

func (s Splitter) splitOnSeparator(text string) []string {
	var parts []string
	if s.Separator == "" {
		parts = []string{text}
	} else {
		parts = strings.Split(text, s.Separator)
	}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

// window hard-cuts a piece longer than the chunk size into overlapping windows.
func (s Splitter) window(piece string) []string {
	if utf8.RuneCountInString(piece) <= s.ChunkSize {
		return []string{piece}
	}
	runes := []rune(piece)
	step := s.ChunkSize - s.ChunkOverlap
	var windows []string
	for start := 0; ; start += step {
		end := start + s.ChunkSize
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}

// merge packs pieces into chunks, carrying up to ChunkOverlap characters of trailing pieces
// into the next chunk.
func (s Splitter) merge(pieces []string) []string {
	sepLen := utf8.RuneCountInString(s.Separator)
	var chunks []string
	var current []string
	var lengths []int
	total := 0

	joinerLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if total+pieceLen+joinerLen() > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, s.Separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.ChunkOverlap || (total > 0 && total+pieceLen+joinerLen() > s.ChunkSize) {
				dropped := lengths[0]
				if len(current) > 1 {
					dropped += sepLen
				}
				total -= dropped
				current = current[1:]
				lengths = lengths[1:]
			}
		}
		total += pieceLen + joinerLen()
		current = append(current, piece)
		lengths = append(lengths, pieceLen)
	}

	if chunk := strings.TrimSpace(strings.Join(current, s.Separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
