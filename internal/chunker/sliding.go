package chunker

import (
	"unicode"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// word is one whitespace-delimited token plus its byte offsets in the
// original content, used to keep the sliding window's char offsets
// approximately in sync with the token window (spec.md §9 Open Questions
// flags this bookkeeping as inherently approximate when whitespace
// separators collapse; we resolve it here by snapping to word boundaries).
type word struct {
	text       string
	start, end int
}

// chunkSliding implements the fixed sliding-window strategy for chat logs:
// window size W = MaxTokens, stride W - OverlapTokens, emitting overlap
// flags on every chunk (spec.md §4.2).
func chunkSliding(content []byte, settings Settings) ([]Draft, error) {
	text := string(content)
	words := tokenizeWords(text)
	if len(words) == 0 {
		return nil, model.NewError(model.ErrEmptyChunks, "sliding chunker: empty content", nil)
	}

	w := settings.MaxTokens
	overlap := settings.OverlapTokens
	if overlap == 0 {
		overlap = w / 2 // 50% of window default, spec.md §4.2
	}
	stride := w - overlap
	if stride < 1 {
		stride = 1
	}

	var drafts []Draft
	for start := 0; start < len(words); start += stride {
		end := start + w
		if end > len(words) {
			end = len(words)
		}
		span := words[start:end]
		first, last := span[0], span[len(span)-1]
		chunkText := text[first.start:last.end]

		drafts = append(drafts, Draft{
			Text:        chunkText,
			TokenCount:  len(span),
			StartOffset: first.start,
			EndOffset:   last.end,
			Metadata: model.ChunkMetadata{
				ChunkingStrategy: string(StrategySliding),
				OverlapsPrevious: start > 0,
				OverlapsNext:     end < len(words),
			},
		})
		if end == len(words) {
			break
		}
	}
	return drafts, nil
}

// tokenizeWords splits text into whitespace-delimited words with their byte
// offsets.
func tokenizeWords(text string) []word {
	var words []word
	inWord := false
	start := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words = append(words, word{text: text[start:i], start: start, end: i})
				inWord = false
			}
			continue
		}
		if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		words = append(words, word{text: text[start:], start: start, end: len(text)})
	}
	return words
}
