package chunker

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// chunkRecord implements the record-based strategy for json/yaml/toml/xml:
// one chunk per top-level record, offsets taken from the format's own
// tokenizer where one exists (json, xml) and from top-level-key boundaries
// otherwise (yaml, toml) — the same line-boundary technique the semantic
// strategy uses for headings.
func chunkRecord(content []byte, contentType model.ContentType, settings Settings) ([]Draft, error) {
	var drafts []Draft
	var err error

	switch contentType {
	case model.ContentJSON:
		drafts, err = chunkJSON(content)
	case model.ContentXML:
		drafts, err = chunkXML(content)
	case model.ContentYAML:
		drafts = chunkByTopLevelLines(content, yamlTopLevelKey)
	case model.ContentTOML:
		drafts = chunkByTopLevelLines(content, tomlTableHeader)
	default:
		return nil, model.NewError(model.ErrUnsupportedContentType, "record chunker: unsupported content type "+string(contentType), nil)
	}
	if err != nil {
		return nil, model.NewError(model.ErrParse, "record chunker: failed to parse "+string(contentType), err)
	}

	for i := range drafts {
		drafts[i].TokenCount = estimateTokens(drafts[i].Text)
		drafts[i].Metadata.ChunkingStrategy = string(StrategyRecord)
	}

	// Records larger than MaxTokens are further split by the recursive
	// strategy; small records below MinTokens are left as-is (record
	// boundaries are semantically meaningful even when short).
	var out []Draft
	for _, d := range drafts {
		if d.TokenCount <= settings.MaxTokens {
			out = append(out, d)
			continue
		}
		sub, serr := chunkRecursive([]byte(d.Text), settings)
		if serr != nil {
			out = append(out, d)
			continue
		}
		for _, s := range sub {
			s.StartOffset += d.StartOffset
			s.EndOffset += d.StartOffset
			s.Metadata.ChunkingStrategy = string(StrategyRecord)
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, model.NewError(model.ErrEmptyChunks, "record chunker: no records found", nil)
	}
	return out, nil
}

// chunkJSON splits a top-level JSON array or object into one chunk per
// element/field, using json.Decoder.InputOffset to recover exact byte
// offsets without re-serializing (which would invalidate offsets).
func chunkJSON(content []byte) ([]Draft, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		// Scalar document: one chunk, the whole thing.
		return []Draft{{Text: string(content), StartOffset: 0, EndOffset: len(content)}}, nil
	}

	var drafts []Draft
	switch delim {
	case '[':
		for dec.More() {
			start := int(dec.InputOffset())
			start = skipWhitespace(content, start)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, err
			}
			end := int(dec.InputOffset())
			drafts = append(drafts, Draft{Text: string(content[start:end]), StartOffset: start, EndOffset: end})
		}
	case '{':
		for dec.More() {
			keyStart := int(dec.InputOffset())
			keyStart = skipWhitespace(content, keyStart)
			var key string
			if err := dec.Decode(&key); err != nil {
				return nil, err
			}
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, err
			}
			end := int(dec.InputOffset())
			drafts = append(drafts, Draft{Text: string(content[keyStart:end]), StartOffset: keyStart, EndOffset: end})
		}
	}
	return drafts, nil
}

func skipWhitespace(content []byte, offset int) int {
	for offset < len(content) {
		switch content[offset] {
		case ' ', '\t', '\n', '\r', ',':
			offset++
		default:
			return offset
		}
	}
	return offset
}

// chunkXML splits the root element's direct children into one chunk per
// child element, using xml.Decoder.InputOffset for exact byte ranges.
func chunkXML(content []byte) ([]Draft, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	depth := 0
	var drafts []Draft
	var childStart int64 = -1

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				childStart = start
			}
		case xml.EndElement:
			if depth == 2 {
				end := dec.InputOffset()
				drafts = append(drafts, Draft{
					Text:        string(content[childStart:end]),
					StartOffset: int(childStart),
					EndOffset:   int(end),
				})
			}
			depth--
		}
	}
	return drafts, nil
}

var yamlTopLevelKey = regexp.MustCompile(`(?m)^[A-Za-z0-9_.\-"']+\s*:`)
var tomlTableHeader = regexp.MustCompile(`(?m)^\[\[?[^\]]+\]\]?\s*$`)

// chunkByTopLevelLines splits content at every line matching boundary,
// producing one chunk per section (the same approach
// internal/chunker/semantic.go uses for markdown headings).
func chunkByTopLevelLines(content []byte, boundary *regexp.Regexp) []Draft {
	text := string(content)
	locs := boundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Draft{{Text: text, StartOffset: 0, EndOffset: len(text)}}
	}

	var drafts []Draft
	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunk := text[start:end]
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		drafts = append(drafts, Draft{Text: chunk, StartOffset: start, EndOffset: end})
	}
	if locs[0][0] > 0 {
		head := text[:locs[0][0]]
		if strings.TrimSpace(head) != "" {
			drafts = append([]Draft{{Text: head, StartOffset: 0, EndOffset: locs[0][0]}}, drafts...)
		}
	}
	return drafts
}
