package indexer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"chinese only", "你好世界", 4},
		{"english only", "hello wonderful world", 3},
		{"mixed", "你好hello世界world", 6},
		{"punctuation ignored", "你好，世界！hello, world!", 6},
		{"digits ignored", "第588期 episode 588", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.text); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestChunkDocumentSections(t *testing.T) {
	doc := &Document{
		DocID: "main/501-600/588",
		Text:  "# 第一节\n\n这是第一节的内容。\n\n## 第二节\n\n这是第二节的内容。",
	}
	opts := Options{TargetChunkSize: 100, MaxChunkSize: 200, MinChunkSize: 0, OverlapSize: 5}

	chunks := ChunkDocument(doc, opts)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if chunks[0].Heading != "第一节" || chunks[1].Heading != "第二节" {
		t.Errorf("headings = %q, %q", chunks[0].Heading, chunks[1].Heading)
	}
	if chunks[0].ChunkID != "main_501-600_588_chunk_000" {
		t.Errorf("chunk ID = %q", chunks[0].ChunkID)
	}
	if chunks[1].ChunkID != "main_501-600_588_chunk_001" {
		t.Errorf("chunk ID = %q", chunks[1].ChunkID)
	}
	// The heading line stays in the chunk text.
	if !strings.HasPrefix(chunks[0].Text, "# 第一节") {
		t.Errorf("chunk text = %q, want heading prefix", chunks[0].Text)
	}
	if chunks[1].DocID != "main/501-600/588" || chunks[1].ChunkIndex != 1 {
		t.Errorf("chunk meta = %q / %d", chunks[1].DocID, chunks[1].ChunkIndex)
	}
}

func TestChunkDocumentNoHeadings(t *testing.T) {
	doc := &Document{DocID: "misc/note", Text: "没有标题的内容，只有正文。"}
	opts := Options{TargetChunkSize: 100, MaxChunkSize: 200, MinChunkSize: 0, OverlapSize: 5}

	chunks := ChunkDocument(doc, opts)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Heading != "" {
		t.Errorf("heading = %q, want empty", chunks[0].Heading)
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("text = %q", chunks[0].Text)
	}
}

func TestSplitSectionsBreadcrumbs(t *testing.T) {
	text := "# 概述\n\n开头。\n\n## 财政\n\n地方财政。\n\n### 债务\n\n城投债。\n\n## 基建\n\n高铁。\n\n# 附录\n\n资料。"

	sections := splitSections(text)

	want := []struct {
		heading    string
		level      int
		breadcrumb []string
	}{
		{"概述", 1, []string{"概述"}},
		{"财政", 2, []string{"概述", "财政"}},
		{"债务", 3, []string{"概述", "财政", "债务"}},
		{"基建", 2, []string{"概述", "基建"}},
		{"附录", 1, []string{"附录"}},
	}
	if len(sections) != len(want) {
		t.Fatalf("got %d sections, want %d", len(sections), len(want))
	}
	for i, w := range want {
		sec := sections[i]
		if sec.heading != w.heading || sec.level != w.level {
			t.Errorf("section %d = %q level %d, want %q level %d",
				i, sec.heading, sec.level, w.heading, w.level)
		}
		if !reflect.DeepEqual(sec.breadcrumb, w.breadcrumb) {
			t.Errorf("section %d breadcrumb = %v, want %v", i, sec.breadcrumb, w.breadcrumb)
		}
	}
}

func TestChunkDocumentSplitsLargeSection(t *testing.T) {
	var paras []string
	for i := range 10 {
		paras = append(paras, fmt.Sprintf("段落%d：", i)+strings.Repeat("字", 20))
	}
	doc := &Document{
		DocID: "main/big",
		Text:  "# 大章节\n\n" + strings.Join(paras, "\n\n"),
	}
	// Each paragraph is ~24 words; the section (~240) exceeds max, so it
	// splits on paragraphs at the 50-word target.
	opts := Options{TargetChunkSize: 50, MaxChunkSize: 100, MinChunkSize: 0, OverlapSize: 10}

	chunks := ChunkDocument(doc, opts)
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	for i, c := range chunks {
		if c.Heading != "大章节" {
			t.Errorf("chunk %d heading = %q", i, c.Heading)
		}
		if c.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, c.ChunkIndex)
		}
	}

	// Later chunks start with overlap carried from the previous one.
	tail := extractLastWords(chunks[0].Text, opts.OverlapSize)
	if tail == "" || !strings.HasPrefix(chunks[1].Text, tail) {
		t.Errorf("chunk 1 does not start with overlap %q: %q", tail, chunks[1].Text[:40])
	}
}

func TestChunkDocumentMinSizeFilter(t *testing.T) {
	doc := &Document{
		DocID: "main/short",
		Text:  "# 短\n\n太短。\n\n# 长\n\n" + strings.Repeat("长内容", 100),
	}
	opts := Options{TargetChunkSize: 1000, MaxChunkSize: 2500, MinChunkSize: 50, OverlapSize: 10}

	chunks := ChunkDocument(doc, opts)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 after filtering", len(chunks))
	}
	if chunks[0].Heading != "长" {
		t.Errorf("kept chunk heading = %q, want 长", chunks[0].Heading)
	}
	// IDs stay consecutive after filtering.
	if chunks[0].ChunkID != "main_short_chunk_000" || chunks[0].ChunkIndex != 0 {
		t.Errorf("chunk ID = %q index = %d", chunks[0].ChunkID, chunks[0].ChunkIndex)
	}
}

func TestChunkDocumentDeterministic(t *testing.T) {
	doc := &Document{
		DocID: "main/det",
		Text:  "# 一\n\n" + strings.Repeat("内容甲。", 50) + "\n\n# 二\n\n" + strings.Repeat("内容乙。", 50),
	}
	opts := DefaultOptions()
	opts.MinChunkSize = 0

	first := ChunkDocument(doc, opts)
	second := ChunkDocument(doc, opts)
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking is not deterministic")
	}
}

func TestExtractLastWords(t *testing.T) {
	t.Run("short text returned whole", func(t *testing.T) {
		text := "只有几个字"
		if got := extractLastWords(text, 100); got != text {
			t.Errorf("got %q, want whole text", got)
		}
	})

	t.Run("cuts at sentence boundary", func(t *testing.T) {
		text := strings.Repeat("前面的句子。", 20) + "最后一句话结尾"
		got := extractLastWords(text, 10)
		if strings.HasPrefix(got, "。") {
			t.Errorf("overlap starts with a break character: %q", got)
		}
		if CountWords(got) >= CountWords(text) {
			t.Errorf("overlap %q is not shorter than input", got)
		}
	})

	t.Run("no boundary falls back to estimate", func(t *testing.T) {
		text := strings.Repeat("字", 100)
		got := extractLastWords(text, 10)
		n := CountWords(got)
		if n == 0 || n > 20 {
			t.Errorf("overlap has %d words, want roughly 10", n)
		}
	})
}
