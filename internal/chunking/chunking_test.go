package chunking

import (
	"strings"
	"testing"
)

const sampleText = `Vector search answers questions by meaning. It compares embeddings instead of keywords.

The index is derived state. The file store remains the source of truth, and
every sync pass reconciles the two.

Short paragraph.`

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"sentence", "paragraph", "fixed"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Errorf("ParseStrategy(%q): %v", s, err)
		}
	}
	if _, err := ParseStrategy("semantic"); err == nil {
		t.Errorf("ParseStrategy should reject unknown strategy")
	}
}

func TestSentenceSplitting(t *testing.T) {
	text := "Hello world. Goodbye world."
	sentences := splitSentences(text)
	if len(sentences) != 2 {
		t.Fatalf("got %d sentences, want 2: %q", len(sentences), sentences)
	}
	if sentences[0] != "Hello world. " {
		t.Errorf("first sentence = %q", sentences[0])
	}
	if sentences[1] != "Goodbye world." {
		t.Errorf("second sentence = %q", sentences[1])
	}
}

func TestSentenceSplittingIgnoresDecimals(t *testing.T) {
	text := "Pi is 3.14 roughly. Euler's number is 2.72."
	sentences := splitSentences(text)
	if len(sentences) != 2 {
		t.Fatalf("got %d sentences, want 2: %q", len(sentences), sentences)
	}
}

func TestSentencePacking(t *testing.T) {
	// Small target: one sentence per chunk.
	chunks, err := Chunk("Hello world. Goodbye world.", StrategySentence, Params{ChunkSize: 16})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}

	// Large target: everything packs into one chunk.
	chunks, err = Chunk("Hello world. Goodbye world.", StrategySentence, Params{ChunkSize: 1000})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1: %q", len(chunks), chunks)
	}
}

func TestParagraphChunking(t *testing.T) {
	chunks, err := Chunk(sampleText, StrategyParagraph, Params{ChunkSize: 1000})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %q", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[2], "Short paragraph.") {
		t.Errorf("last chunk = %q", chunks[2])
	}
}

func TestParagraphOversizeFallsBackToSentences(t *testing.T) {
	// One paragraph, two sentences, target smaller than the paragraph.
	text := "First sentence of a long paragraph. Second sentence of the same paragraph."
	chunks, err := Chunk(text, StrategyParagraph, Params{ChunkSize: 40})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), chunks)
	}
}

func TestReconstruction(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		params   Params
	}{
		{"sentence small", StrategySentence, Params{ChunkSize: 20}},
		{"sentence large", StrategySentence, Params{ChunkSize: 5000}},
		{"paragraph small", StrategyParagraph, Params{ChunkSize: 30}},
		{"paragraph large", StrategyParagraph, Params{ChunkSize: 5000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Chunk(sampleText, tt.strategy, tt.params)
			if err != nil {
				t.Fatalf("Chunk: %v", err)
			}
			if got := strings.Join(chunks, ""); got != sampleText {
				t.Errorf("concatenated chunks differ from source:\ngot  %q\nwant %q", got, sampleText)
			}
		})
	}
}

func TestFixedReconstructionStrippingOverlap(t *testing.T) {
	params := Params{WindowSize: 40, Overlap: 0.25}
	chunks, err := Chunk(sampleText, StrategyFixed, params)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}

	overlap := OverlapRunes(params)
	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		runes := []rune(c)
		if len(runes) <= overlap {
			t.Fatalf("window shorter than overlap: %q", c)
		}
		sb.WriteString(string(runes[overlap:]))
	}
	if sb.String() != sampleText {
		t.Errorf("overlap-stripped concatenation differs from source")
	}
}

func TestFixedWindowsOverlap(t *testing.T) {
	params := Params{WindowSize: 40, Overlap: 0.25}
	chunks, _ := Chunk(sampleText, StrategyFixed, params)
	overlap := OverlapRunes(params)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		tail := string(prev[len(prev)-overlap:])
		head := string(cur[:overlap])
		if tail != head {
			t.Errorf("window %d does not overlap its predecessor: tail %q head %q", i, tail, head)
		}
	}
}

func TestDeterminism(t *testing.T) {
	for _, strategy := range []Strategy{StrategySentence, StrategyParagraph, StrategyFixed} {
		a, err := Chunk(sampleText, strategy, Params{ChunkSize: 50, WindowSize: 50, Overlap: 0.2})
		if err != nil {
			t.Fatalf("Chunk(%s): %v", strategy, err)
		}
		b, _ := Chunk(sampleText, strategy, Params{ChunkSize: 50, WindowSize: 50, Overlap: 0.2})
		if len(a) != len(b) {
			t.Fatalf("%s: chunk count changed between runs", strategy)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("%s: chunk %d changed between runs", strategy, i)
			}
		}
	}
}

func TestEmptyText(t *testing.T) {
	chunks, err := Chunk("", StrategyParagraph, Params{})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("empty text should yield no chunks, got %d", len(chunks))
	}
}
