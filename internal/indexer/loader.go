package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Document is a loaded and cleaned source file.
type Document struct {
	ID       string // unique ID, doc_<path with / replaced by _>
	FilePath string // absolute path on disk
	DocID    string // relative path without the .md extension
	Text     string // cleaned markdown text
}

// Cleanup patterns, applied in order by CleanText.
var (
	frontMatterRe   = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	tabsSectionRe   = regexp.MustCompile(`(?s)#\s+Tabs\s+\{\.tabset\}.*?(\n#{1,6}\s+|\z)`)
	htmlCommentRe   = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockRe     = regexp.MustCompile(`(?s)<(?:div|iframe|span)[^>]*>.*?</(?:div|iframe|span)>`)
	htmlSelfCloseRe = regexp.MustCompile(`<(?:div|iframe|span)[^>]*/?>`)
	fontTagRe       = regexp.MustCompile(`(?s)<font[^>]*>(.*?)</font>`)
	htmlTagRe       = regexp.MustCompile(`<[^>]+>`)
	imageRe         = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	imageMarkerRe   = regexp.MustCompile(`(?m)^图片\s*$`)
	blankLinesRe    = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// LoadDocument reads and cleans one markdown document.
func LoadDocument(contentsDir, docID string) (*Document, error) {
	filePath := filepath.Join(contentsDir, docID+".md")

	// #nosec G304 -- paths come from the scanned archive directory
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", docID, err)
	}

	return &Document{
		ID:       "doc_" + strings.ReplaceAll(docID, "/", "_"),
		FilePath: filePath,
		DocID:    docID,
		Text:     CleanText(string(content)),
	}, nil
}

// CleanText strips YAML front matter, embedded HTML, tab sections, images
// and image placeholders, then normalizes line endings and blank lines.
func CleanText(text string) string {
	if loc := frontMatterRe.FindStringIndex(text); loc != nil && loc[0] == 0 {
		text = text[loc[1]:]
	}

	text = removeHTMLSections(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// removeHTMLSections drops embedded HTML and media markup while keeping
// the inner text of font tags.
func removeHTMLSections(text string) string {
	// Tab sections hold video embeds; drop up to the next heading.
	text = tabsSectionRe.ReplaceAllString(text, "$1")

	text = htmlCommentRe.ReplaceAllString(text, "")
	text = htmlBlockRe.ReplaceAllString(text, "")
	text = htmlSelfCloseRe.ReplaceAllString(text, "")
	text = fontTagRe.ReplaceAllString(text, "$1")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = imageRe.ReplaceAllString(text, "")
	text = imageMarkerRe.ReplaceAllString(text, "")

	return text
}
