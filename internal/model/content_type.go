package model

import "strings"

// ContentType is the closed enumeration of document content types spec.md
// §6 lists, used both by the chunker's strategy dispatch and by detection.
type ContentType string

const (
	// source code
	ContentRust       ContentType = "rust"
	ContentPython     ContentType = "python"
	ContentTypeScript ContentType = "typescript"
	ContentJavaScript ContentType = "javascript"
	ContentGo         ContentType = "go"
	ContentJava       ContentType = "java"
	ContentC          ContentType = "c"
	ContentCPP        ContentType = "cpp"
	ContentRuby       ContentType = "ruby"
	ContentPHP        ContentType = "php"
	ContentSwift      ContentType = "swift"
	ContentKotlin     ContentType = "kotlin"
	ContentScala      ContentType = "scala"
	ContentHaskell    ContentType = "haskell"
	ContentElixir     ContentType = "elixir"
	ContentZig        ContentType = "zig"

	// documentation
	ContentMarkdown ContentType = "markdown"
	ContentRST      ContentType = "rst"
	ContentAsciidoc ContentType = "asciidoc"
	ContentHTML     ContentType = "html"
	ContentLaTeX    ContentType = "latex"
	ContentPlain    ContentType = "plaintext"

	// configuration
	ContentJSON ContentType = "json"
	ContentYAML ContentType = "yaml"
	ContentTOML ContentType = "toml"
	ContentXML  ContentType = "xml"
	ContentINI  ContentType = "ini"

	// data
	ContentCSV ContentType = "csv"
	ContentSQL ContentType = "sql"

	// special
	ContentChatLog ContentType = "chat_log"
	ContentGitDiff ContentType = "git_diff"
	ContentJupyter ContentType = "jupyter_notebook"

	ContentPDF     ContentType = "pdf"
	ContentUnknown ContentType = "unknown"
)

// codeTypes is the subset of ContentType that the syntax-tree chunker
// strategy dispatches on (spec.md §4.2 strategy table).
var codeTypes = map[ContentType]bool{
	ContentRust: true, ContentPython: true, ContentTypeScript: true,
	ContentJavaScript: true, ContentGo: true, ContentJava: true,
	ContentC: true, ContentCPP: true, ContentRuby: true, ContentPHP: true,
	ContentSwift: true, ContentKotlin: true, ContentScala: true,
	ContentHaskell: true, ContentElixir: true, ContentZig: true,
}

// IsCode reports whether ct is a source-code content type.
func (ct ContentType) IsCode() bool { return codeTypes[ct] }

var markupTypes = map[ContentType]bool{
	ContentMarkdown: true, ContentRST: true, ContentHTML: true,
}

// IsMarkup reports whether ct is handled by the heading-aware semantic
// chunking strategy.
func (ct ContentType) IsMarkup() bool { return markupTypes[ct] }

var recordTypes = map[ContentType]bool{
	ContentJSON: true, ContentYAML: true, ContentTOML: true, ContentXML: true,
}

// IsRecord reports whether ct is handled by the record-based chunking
// strategy.
func (ct ContentType) IsRecord() bool { return recordTypes[ct] }

// IsChatLog reports whether ct uses the fixed sliding-window strategy.
func (ct ContentType) IsChatLog() bool { return ct == ContentChatLog }

// extensionTable maps a lowercase file extension (without the dot) to a
// ContentType, used by detection step 2 (hint → extension → magic → unknown).
var extensionTable = map[string]ContentType{
	"rs": ContentRust, "py": ContentPython, "pyi": ContentPython,
	"ts": ContentTypeScript, "tsx": ContentTypeScript,
	"js": ContentJavaScript, "jsx": ContentJavaScript, "mjs": ContentJavaScript,
	"go": ContentGo, "java": ContentJava,
	"c": ContentC, "h": ContentC,
	"cpp": ContentCPP, "cc": ContentCPP, "cxx": ContentCPP, "hpp": ContentCPP,
	"rb": ContentRuby, "php": ContentPHP, "swift": ContentSwift,
	"kt": ContentKotlin, "kts": ContentKotlin, "scala": ContentScala,
	"hs": ContentHaskell, "ex": ContentElixir, "exs": ContentElixir,
	"zig": ContentZig,

	"md": ContentMarkdown, "markdown": ContentMarkdown,
	"rst": ContentRST, "adoc": ContentAsciidoc, "asciidoc": ContentAsciidoc,
	"html": ContentHTML, "htm": ContentHTML, "tex": ContentLaTeX,
	"txt": ContentPlain,

	"json": ContentJSON, "yaml": ContentYAML, "yml": ContentYAML,
	"toml": ContentTOML, "xml": ContentXML, "ini": ContentINI,

	"csv": ContentCSV, "sql": ContentSQL,

	"diff": ContentGitDiff, "patch": ContentGitDiff,
	"ipynb": ContentJupyter,
	"pdf":   ContentPDF,
}

// DetectByExtension looks up a ContentType from a file extension (with or
// without a leading dot). Returns ContentUnknown if no mapping exists.
func DetectByExtension(ext string) ContentType {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ct, ok := extensionTable[ext]; ok {
		return ct
	}
	return ContentUnknown
}

// DetectByMagicBytes sniffs a small set of unambiguous magic byte prefixes.
// This is the last detection step before giving up and returning Unknown.
func DetectByMagicBytes(data []byte) ContentType {
	switch {
	case len(data) >= 5 && string(data[:5]) == "%PDF-":
		return ContentPDF
	case len(data) >= 1 && data[0] == '{':
		return ContentJSON
	default:
		return ContentUnknown
	}
}

// DetectContentType implements spec.md §4.6 step 2: hint → extension →
// magic bytes → Unknown.
func DetectContentType(hint ContentType, ext string, data []byte) ContentType {
	if hint != "" && hint != ContentUnknown {
		return hint
	}
	if ct := DetectByExtension(ext); ct != ContentUnknown {
		return ct
	}
	return DetectByMagicBytes(data)
}
