package chunker

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/fenwick-labs/corpusengine/internal/chunker/langs"
	"github.com/fenwick-labs/corpusengine/internal/model"
)

// langNames maps a code ContentType to the grammar registry key in package
// langs.
var langNames = map[model.ContentType]string{
	model.ContentPython:     "python",
	model.ContentRust:       "rust",
	model.ContentTypeScript: "typescript",
	model.ContentJavaScript: "javascript",
	model.ContentJava:       "java",
	model.ContentC:          "c",
	model.ContentCPP:        "cpp",
	model.ContentRuby:       "ruby",
	model.ContentPHP:        "php",
}

// chunkSyntaxTree implements spec.md §4.2's syntax-tree strategy: parse with
// the language's grammar, walk boundary nodes (function/method/class/
// impl-trait/module/top-level-declaration), recursively descend into
// over-sized nodes, and fill the gaps between siblings with untyped chunks
// when those gaps hold at least MinTokens.
func chunkSyntaxTree(content []byte, contentType model.ContentType, settings Settings) ([]Draft, error) {
	name, ok := langNames[contentType]
	if !ok {
		return nil, model.NewError(model.ErrUnsupportedContentType, "syntax chunker: no grammar mapping for "+string(contentType), nil)
	}
	grammar, ok := langs.Lookup(name)
	if !ok {
		return nil, model.NewError(model.ErrUnsupportedContentType, "syntax chunker: no grammar registered for "+name, nil)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar.Language)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, model.NewError(model.ErrParse, "syntax chunker: parser returned nil tree for "+name, nil)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, model.NewError(model.ErrParse, "syntax chunker: empty root node for "+name, nil)
	}

	w := &syntaxWalker{content: content, settings: settings, boundary: grammar.Boundary}
	w.walkChildren(root)
	w.flushGap(len(content))

	return dropOrMergeUndersized(w.drafts, settings), nil
}

type syntaxWalker struct {
	content  []byte
	settings Settings
	boundary map[string]bool
	drafts   []Draft
	gapStart int
}

// walkChildren scans a node's named children in source order, treating any
// boundary-kind child as a candidate chunk and accumulating the gaps
// between boundary nodes for separate gap chunks.
func (w *syntaxWalker) walkChildren(node *sitter.Node) {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(uint(i))
		if child == nil || !child.IsNamed() {
			continue
		}
		if w.boundary[child.Kind()] {
			w.flushGap(int(child.StartByte()))
			w.emitNode(child, child.Kind())
			w.gapStart = int(child.EndByte())
			continue
		}
		// Not a boundary kind at this level: recurse to find boundary
		// descendants (e.g. top-level export wrapping a function).
		w.walkChildren(child)
	}
}

// emitNode turns node into one chunk if it fits MaxTokens, otherwise
// recurses into its children and emits each child's own chunks instead.
func (w *syntaxWalker) emitNode(node *sitter.Node, kind string) {
	text := string(w.content[node.StartByte():node.EndByte()])
	tokens := estimateTokens(text)
	if tokens <= w.settings.MaxTokens {
		w.drafts = append(w.drafts, Draft{
			Text:        text,
			TokenCount:  tokens,
			StartOffset: int(node.StartByte()),
			EndOffset:   int(node.EndByte()),
			Metadata: model.ChunkMetadata{
				NodeKind:         kind,
				NodeName:         nodeName(node, w.content),
				ChunkingStrategy: string(StrategySyntaxTree),
			},
		})
		return
	}

	// Too large: replace with children's own chunk boundaries.
	sub := &syntaxWalker{content: w.content, settings: w.settings, boundary: w.boundary, gapStart: int(node.StartByte())}
	sub.walkChildren(node)
	sub.flushGap(int(node.EndByte()))
	w.drafts = append(w.drafts, sub.drafts...)
}

// flushGap emits the untyped span between gapStart and end as its own chunk
// when it holds at least MinTokens.
func (w *syntaxWalker) flushGap(end int) {
	if end <= w.gapStart {
		w.gapStart = end
		return
	}
	text := string(w.content[w.gapStart:end])
	tokens := estimateTokens(text)
	if tokens >= w.settings.MinTokens {
		w.drafts = append(w.drafts, Draft{
			Text:        text,
			TokenCount:  tokens,
			StartOffset: w.gapStart,
			EndOffset:   end,
			Metadata:    model.ChunkMetadata{ChunkingStrategy: string(StrategySyntaxTree)},
		})
	}
	w.gapStart = end
}

func nodeName(node *sitter.Node, content []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return string(content[nameNode.StartByte():nameNode.EndByte()])
}
