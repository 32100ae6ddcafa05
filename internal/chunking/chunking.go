// Package chunking splits document text into ordered chunks sized for
// embedding. Chunking is pure and deterministic: the same text, strategy, and
// params always produce the same chunks, and concatenating the chunks
// (minus overlap regions for the fixed strategy) reconstructs the original
// text byte-for-byte. Change detection relies on both properties.
package chunking

import (
	"errors"
	"fmt"
)

// Strategy selects how a document is split into chunks.
type Strategy string

const (
	// StrategySentence splits on sentence boundaries and packs consecutive
	// sentences until the target chunk size is reached.
	StrategySentence Strategy = "sentence"
	// StrategyParagraph splits on blank-line boundaries; paragraphs exceeding
	// the target size are further split by sentence.
	StrategyParagraph Strategy = "paragraph"
	// StrategyFixed splits into fixed character windows with a configurable
	// overlap fraction.
	StrategyFixed Strategy = "fixed"
)

// ErrUnknownStrategy is returned for strategy values outside the closed set.
var ErrUnknownStrategy = errors.New("unknown chunking strategy")

// ParseStrategy validates a strategy string from an API request or config.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySentence, StrategyParagraph, StrategyFixed:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Params tunes the chunking strategies.
type Params struct {
	ChunkSize  int     // target size in bytes for sentence/paragraph packing
	WindowSize int     // window size in runes for the fixed strategy
	Overlap    float64 // overlap fraction in [0,1) for the fixed strategy
}

// DefaultParams are used when a caller passes zero values.
var DefaultParams = Params{
	ChunkSize:  1000,
	WindowSize: 800,
	Overlap:    0.2,
}

func (p Params) withDefaults() Params {
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultParams.ChunkSize
	}
	if p.WindowSize <= 0 {
		p.WindowSize = DefaultParams.WindowSize
	}
	if p.Overlap < 0 || p.Overlap >= 1 {
		p.Overlap = DefaultParams.Overlap
	}
	return p
}

// Chunk splits text into ordered chunks under the given strategy.
// Empty text yields no chunks.
func Chunk(text string, strategy Strategy, p Params) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	p = p.withDefaults()

	switch strategy {
	case StrategySentence:
		return packUnits(splitSentences(text), p.ChunkSize), nil
	case StrategyParagraph:
		return chunkParagraphs(text, p.ChunkSize), nil
	case StrategyFixed:
		return chunkFixed(text, p.WindowSize, p.Overlap), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// OverlapRunes returns how many leading runes of each chunk after the first
// duplicate the tail of its predecessor under the fixed strategy. Callers
// stripping overlap to reconstruct the source use this.
func OverlapRunes(p Params) int {
	p = p.withDefaults()
	return int(float64(p.WindowSize) * p.Overlap)
}

// splitSentences splits text at sentence boundaries. The whitespace run
// following a terminator stays attached to the preceding sentence, so
// concatenating the pieces reproduces the input exactly.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '.' || c == '!' || c == '?' {
			// Consume any run of terminators (e.g. "?!", "...").
			for i < len(text) && (text[i] == '.' || text[i] == '!' || text[i] == '?') {
				i++
			}
			// A boundary needs trailing whitespace or end of text;
			// "3.14" is not a boundary.
			if i == len(text) {
				break
			}
			if !isSpace(text[i]) {
				continue
			}
			for i < len(text) && isSpace(text[i]) {
				i++
			}
			sentences = append(sentences, text[start:i])
			start = i
			continue
		}
		i++
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// splitParagraphs splits text at blank-line boundaries. The blank-line run
// stays attached to the preceding paragraph.
func splitParagraphs(text string) []string {
	var paragraphs []string
	start := 0
	i := 0
	for i < len(text) {
		if text[i] != '\n' {
			i++
			continue
		}
		// Count the newline run, allowing blank lines that contain only
		// spaces or tabs.
		j := i
		newlines := 0
		for j < len(text) {
			if text[j] == '\n' {
				newlines++
				j++
			} else if text[j] == ' ' || text[j] == '\t' || text[j] == '\r' {
				j++
			} else {
				break
			}
		}
		if newlines >= 2 {
			paragraphs = append(paragraphs, text[start:j])
			start = j
		}
		i = j
	}
	if start < len(text) {
		paragraphs = append(paragraphs, text[start:])
	}
	return paragraphs
}

// chunkParagraphs emits one chunk per paragraph, splitting oversized
// paragraphs by sentence.
func chunkParagraphs(text string, target int) []string {
	var chunks []string
	for _, para := range splitParagraphs(text) {
		if len(para) <= target {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, packUnits(splitSentences(para), target)...)
	}
	return chunks
}

// packUnits greedily packs consecutive units into chunks of at most target
// bytes. A unit longer than target becomes its own chunk; nothing is ever
// dropped or reordered.
func packUnits(units []string, target int) []string {
	var chunks []string
	var cur string
	for _, u := range units {
		if cur == "" {
			cur = u
			continue
		}
		if len(cur)+len(u) <= target {
			cur += u
			continue
		}
		chunks = append(chunks, cur)
		cur = u
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}
	return chunks
}

// chunkFixed splits text into windows of windowSize runes, each window
// starting step = windowSize - overlap runes after the previous one.
func chunkFixed(text string, windowSize int, overlap float64) []string {
	runes := []rune(text)
	if len(runes) <= windowSize {
		return []string{text}
	}

	overlapRunes := int(float64(windowSize) * overlap)
	step := windowSize - overlapRunes
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + windowSize
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

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
