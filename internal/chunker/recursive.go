package chunker

import (
	"strings"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// separators is the fixed preference order spec.md §4.2 mandates for the
// recursive-split strategy, widest structural boundary first.
var separators = []string{"\n\n\n", "\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// chunkRecursive implements the recursive-separator fallback strategy: try
// each separator in order, greedily pack parts under MaxTokens, and recurse
// into any part still too large using the next separator. The absolute last
// resort is a forced split at an estimated character width.
func chunkRecursive(content []byte, settings Settings) ([]Draft, error) {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, model.NewError(model.ErrEmptyChunks, "recursive chunker: empty content", nil)
	}

	pieces := splitRecursive(text, settings.MaxTokens, 0)
	drafts := make([]Draft, 0, len(pieces))
	offset := 0
	for _, p := range pieces {
		idx := strings.Index(text[offset:], p)
		start := offset
		if idx >= 0 {
			start = offset + idx
		}
		end := start + len(p)
		if strings.TrimSpace(p) == "" {
			offset = end
			continue
		}
		drafts = append(drafts, Draft{
			Text:        p,
			TokenCount:  estimateTokens(p),
			StartOffset: start,
			EndOffset:   end,
			Metadata:    model.ChunkMetadata{ChunkingStrategy: string(StrategyRecursive)},
		})
		offset = end
	}
	return dropOrMergeUndersized(drafts, settings), nil
}

// splitRecursive splits text by separators[sepIdx:] and greedily repacks
// the resulting parts so each returned piece is <= maxTokens, recursing to
// the next separator for any piece still too large.
func splitRecursive(text string, maxTokens, sepIdx int) []string {
	if estimateTokens(text) <= maxTokens {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return forceSplit(text, maxTokens)
	}

	sep := separators[sepIdx]
	var parts []string
	if sep == "" {
		parts = forceSplit(text, maxTokens)
	} else {
		parts = splitKeepingDelimiter(text, sep)
	}

	packed := greedyPack(parts, maxTokens)
	var out []string
	for _, p := range packed {
		if estimateTokens(p) > maxTokens {
			out = append(out, splitRecursive(p, maxTokens, sepIdx+1)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// splitKeepingDelimiter splits on sep but keeps sep attached to the
// preceding part, so offsets stay contiguous when pieces are rejoined.
func splitKeepingDelimiter(text, sep string) []string {
	raw := strings.Split(text, sep)
	parts := make([]string, 0, len(raw))
	for i, r := range raw {
		if i < len(raw)-1 {
			parts = append(parts, r+sep)
		} else if r != "" {
			parts = append(parts, r)
		}
	}
	return parts
}

// greedyPack merges consecutive parts into chunks whose combined token
// count stays under maxTokens.
func greedyPack(parts []string, maxTokens int) []string {
	var out []string
	var cur strings.Builder
	curTokens := 0
	for _, p := range parts {
		pt := estimateTokens(p)
		if curTokens > 0 && curTokens+pt > maxTokens {
			out = append(out, cur.String())
			cur.Reset()
			curTokens = 0
		}
		cur.WriteString(p)
		curTokens += pt
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// forceSplit is the last-resort split at an estimated character width, used
// when no separator brings a piece under maxTokens.
func forceSplit(text string, maxTokens int) []string {
	width := estimatedCharWidth(maxTokens)
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += width {
		end := i + width
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// dropOrMergeUndersized merges a too-small trailing piece into its neighbor
// when the merge still fits MaxTokens, and drops pieces that remain under
// MinTokens and cannot be merged (spec.md §4.2 syntax-tree merge rule,
// generalized to every non-overlapping strategy).
func dropOrMergeUndersized(drafts []Draft, settings Settings) []Draft {
	if settings.MinTokens <= 0 || len(drafts) == 0 {
		return drafts
	}
	merged := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		if len(merged) > 0 {
			prev := merged[len(merged)-1]
			smaller := prev.TokenCount
			if d.TokenCount < smaller {
				smaller = d.TokenCount
			}
			if prev.TokenCount+d.TokenCount <= settings.MaxTokens && smaller < settings.MinTokens {
				prev.Text += d.Text
				prev.EndOffset = d.EndOffset
				prev.TokenCount += d.TokenCount
				merged[len(merged)-1] = prev
				continue
			}
		}
		merged = append(merged, d)
	}

	final := make([]Draft, 0, len(merged))
	for _, d := range merged {
		if d.TokenCount < settings.MinTokens && len(merged) > 1 {
			continue
		}
		final = append(final, d)
	}
	if len(final) == 0 {
		return merged
	}
	return final
}
