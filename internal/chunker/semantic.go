package chunker

import (
	"regexp"
	"strings"

	"github.com/fenwick-labs/corpusengine/internal/model"
	"golang.org/x/net/html"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// chunkSemantic implements the heading-aware strategy for Markdown and
// reStructuredText (`#`-style headings are close enough to treat
// uniformly — the teacher's own chunker.go only special-cases `##`). HTML is
// lowered to text first and handed to the recursive strategy, exactly as
// spec.md §4.2 describes.
func chunkSemantic(content []byte, contentType model.ContentType, settings Settings) ([]Draft, error) {
	if contentType == model.ContentHTML {
		text, err := htmlToText(content)
		if err != nil {
			return nil, model.NewError(model.ErrParse, "semantic chunker: failed to lower html to text", err)
		}
		return chunkRecursive([]byte(text), settings)
	}

	overlap := settings.OverlapTokens
	if overlap == 0 {
		overlap = settings.MaxTokens / 10 // ~10% of max, spec.md §4.2 default
	}

	w := &headingWalker{settings: settings, overlapTokens: overlap}
	w.walk(string(content))
	w.flush()

	return dropOrMergeUndersized(w.drafts, settings), nil
}

type headingWalker struct {
	settings      Settings
	overlapTokens int

	stack  []string // heading titles, depth = level-1
	buf    strings.Builder
	offset int // offset of buf's first byte in the original content
	pos    int // current scan offset in the original content
	drafts []Draft
}

func (w *headingWalker) walk(content string) {
	lines := strings.SplitAfter(content, "\n")
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\n")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "```") {
			inFence = !inFence
			w.accumulate(line)
			continue
		}
		if !inFence {
			if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
				w.flush()
				level := len(m[1])
				if level-1 < len(w.stack) {
					w.stack = w.stack[:level-1]
				}
				for len(w.stack) < level-1 {
					w.stack = append(w.stack, "")
				}
				w.stack = append(w.stack, m[2])
				w.offset = w.pos
				w.accumulate(line)
				continue
			}
		}
		w.accumulate(line)

		if !inFence && estimateTokens(w.buf.String()) > w.settings.MaxTokens {
			w.flushAtParagraphBoundary()
		}
	}
}

func (w *headingWalker) accumulate(line string) {
	w.buf.WriteString(line)
	w.pos += len(line)
}

// flushAtParagraphBoundary flushes everything up to the last blank-line
// boundary in the buffer, keeping the remainder accumulating.
func (w *headingWalker) flushAtParagraphBoundary() {
	full := w.buf.String()
	idx := strings.LastIndex(full, "\n\n")
	if idx < 0 {
		w.flush()
		return
	}
	head := full[:idx]
	tail := full[idx:]
	w.emit(head)
	w.buf.Reset()
	w.buf.WriteString(tail)
	w.offset += len(head)
}

func (w *headingWalker) flush() {
	if w.buf.Len() == 0 {
		return
	}
	w.emit(w.buf.String())
	w.buf.Reset()
	w.offset = w.pos
}

func (w *headingWalker) emit(text string) {
	if strings.TrimSpace(text) == "" {
		w.offset += len(text)
		return
	}
	headingPath := append([]string(nil), w.stack...)
	w.drafts = append(w.drafts, Draft{
		Text:        text,
		TokenCount:  estimateTokens(text),
		StartOffset: w.offset,
		EndOffset:   w.offset + len(text),
		Metadata: model.ChunkMetadata{
			HeadingPath:      headingPath,
			ChunkingStrategy: string(StrategySemantic),
		},
	})
	w.offset += len(text)
}

// htmlToText lowers an HTML document to its visible text content, stripping
// tags, scripts, and styles, using golang.org/x/net/html the way the rest of
// the pack (e.g. go-readability in intelligencedev-manifold) consumes it.
func htmlToText(content []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlockElement(n.Data) {
			sb.WriteString("\n\n")
		}
	}
	walk(doc)
	return sb.String(), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "br": true, "pre": true,
}

func isBlockElement(tag string) bool { return blockElements[tag] }
