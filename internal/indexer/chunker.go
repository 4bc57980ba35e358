package indexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bedtimenews/newsagent/internal/store"
)

// Chunking parameters, in words as counted by CountWords.
type Options struct {
	TargetChunkSize int // preferred chunk size
	MaxChunkSize    int // sections up to this size stay whole
	MinChunkSize    int // smaller chunks are dropped
	OverlapSize     int // words carried over from the previous chunk
}

// DefaultOptions returns the chunking parameters used by the pipeline.
func DefaultOptions() Options {
	return Options{
		TargetChunkSize: 1000,
		MaxChunkSize:    2500,
		MinChunkSize:    200,
		OverlapSize:     150,
	}
}

var (
	headingRe   = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	paragraphRe = regexp.MustCompile(`\n\s*\n`)
	cjkOrWordRe = regexp.MustCompile(`[\x{4e00}-\x{9fff}]|[a-zA-Z]+`)
)

// Sentence boundaries tried in order when extracting overlap text.
var overlapBreaks = []string{"。", "！", "？", "；", ".", "!", "?", ";", "\n\n"}

// section is a heading-delimited region of a document. The heading line
// itself is part of the content. breadcrumb is the path of enclosing
// headings, outermost first, ending with the section's own heading.
type section struct {
	heading    string
	level      int
	breadcrumb []string
	content    string
}

// CountWords counts CJK characters individually and runs of Latin letters
// as single words. Mixed Chinese and English text gets a sensible size
// either way.
func CountWords(text string) int {
	return len(cjkOrWordRe.FindAllStringIndex(text, -1))
}

// ChunkDocument splits a cleaned document into chunks along heading
// boundaries. Sections larger than MaxChunkSize are split on paragraphs
// into roughly TargetChunkSize pieces, with OverlapSize words of the
// previous chunk prepended to preserve context across boundaries. Chunks
// below MinChunkSize are dropped after splitting.
func ChunkDocument(doc *Document, opts Options) []store.Chunk {
	sections := splitSections(doc.Text)

	var texts []string
	var headings []string
	overlap := ""

	for _, sec := range sections {
		chunks := chunkSection(sec.content, overlap, opts)
		for _, c := range chunks {
			texts = append(texts, c)
			headings = append(headings, sec.heading)
		}
		if len(chunks) > 0 {
			overlap = extractLastWords(chunks[len(chunks)-1], opts.OverlapSize)
		}
	}

	idPrefix := strings.ReplaceAll(doc.DocID, "/", "_")

	var out []store.Chunk
	for i, text := range texts {
		wc := CountWords(text)
		if wc < opts.MinChunkSize {
			continue
		}
		out = append(out, store.Chunk{
			ChunkID:    fmt.Sprintf("%s_chunk_%03d", idPrefix, len(out)),
			DocID:      doc.DocID,
			ChunkIndex: len(out),
			Heading:    headings[i],
			Text:       text,
			WordCount:  wc,
		})
	}
	return out
}

// splitSections cuts the text at markdown headings. Each section runs
// from its heading line to the start of the next heading. Text with no
// headings becomes a single unnamed section.
//
// The enclosing heading path is tracked with a level stack: a heading at
// level L pops every entry at level L or deeper before pushing itself,
// so each section carries its full heading breadcrumb.
func splitSections(text string) []section {
	locs := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []section{{content: strings.TrimSpace(text)}}
	}

	type stackEntry struct {
		level   int
		heading string
	}
	var stack []stackEntry

	sections := make([]section, 0, len(locs))
	for i, loc := range locs {
		level := loc[3] - loc[2] // number of # characters
		heading := text[loc[4]:loc[5]]

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, stackEntry{level: level, heading: heading})

		breadcrumb := make([]string, len(stack))
		for j, entry := range stack {
			breadcrumb[j] = entry.heading
		}

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, section{
			heading:    heading,
			level:      level,
			breadcrumb: breadcrumb,
			content:    strings.TrimSpace(text[loc[0]:end]),
		})
	}
	return sections
}

// chunkSection splits one section into chunk texts. Small sections stay
// whole; large ones are split on paragraph boundaries, accumulating
// paragraphs until the target size is reached.
func chunkSection(content, overlap string, opts Options) []string {
	if CountWords(content) <= opts.MaxChunkSize {
		if overlap != "" {
			content = strings.TrimSpace(overlap + "\n\n" + content)
		}
		return []string{content}
	}

	var paragraphs []string
	for _, p := range paragraphRe.Split(content, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []string
	var current []string
	currentSize := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.Join(current, "\n\n")
		if overlap != "" {
			chunk = strings.TrimSpace(overlap + "\n\n" + chunk)
		}
		chunks = append(chunks, chunk)
		overlap = extractLastWords(chunk, opts.OverlapSize)
		current = current[:0]
		currentSize = 0
	}

	for _, para := range paragraphs {
		size := CountWords(para)
		if currentSize+size > opts.TargetChunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, para)
		currentSize += size
	}
	flush()

	return chunks
}

// extractLastWords returns roughly the last n words of text, cut at a
// sentence boundary near the estimated position when one exists.
func extractLastWords(text string, n int) string {
	total := CountWords(text)
	if total <= n {
		return text
	}

	runes := []rune(text)
	ratio := float64(n) / float64(total)
	start := int(float64(len(runes)) * (1 - ratio))

	// Look for a sentence break within 50 runes of the estimate.
	windowStart := max(start-50, 0)
	windowEnd := min(start+50, len(runes))
	window := string(runes[windowStart:windowEnd])

	for _, brk := range overlapBreaks {
		if pos := strings.LastIndex(window, brk); pos >= 0 {
			cut := windowStart + len([]rune(window[:pos])) + 1
			return strings.TrimSpace(string(runes[cut:]))
		}
	}
	return strings.TrimSpace(string(runes[start:]))
}
