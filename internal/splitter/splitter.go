package splitter

import "errors"

var (
	ErrChunkSize = errors.New("chunk size must be positive")
	ErrOverlap   = errors.New("overlap must be non-negative and smaller than chunk size")
)

// Splitter cuts text into fixed-size chunks with a sliding window.
// Consecutive chunks share overlap characters so that sentences cut at
// a boundary still appear whole in one of them.
type Splitter struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, ErrChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrOverlap
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split returns the chunks of text in order. Sizes are measured in
// runes so multi-byte characters are never cut in half. Empty input
// yields no chunks.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
