package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "front matter stripped",
			text: "---\ntitle: 睡前消息588\ndate: 2023-05-20\n---\n正文内容",
			want: "正文内容",
		},
		{
			name: "html comment removed",
			text: "前文<!-- 注释\n跨行 -->后文",
			want: "前文后文",
		},
		{
			name: "div block removed",
			text: "正文\n<div class=\"video\">嵌入内容</div>\n继续",
			want: "正文\n\n继续",
		},
		{
			name: "font tag keeps inner text",
			text: "<font color=\"red\">重点内容</font>其余",
			want: "重点内容其余",
		},
		{
			name: "image replaced",
			text: "看图：![说明文字](https://example.com/a.png)结束",
			want: "看图：结束",
		},
		{
			name: "image marker line removed",
			text: "上文\n图片\n下文",
			want: "上文\n\n下文",
		},
		{
			name: "tabs section dropped until next heading",
			text: "# Tabs {.tabset}\n\n视频嵌入\n\n## 正文\n\n内容",
			want: "## 正文\n\n内容",
		},
		{
			name: "crlf normalized and blanks collapsed",
			text: "第一行\r\n\r\n\r\n\r\n第二行\r结束",
			want: "第一行\n\n第二行\n结束",
		},
		{
			name: "plain text untouched",
			text: "普通的正文段落。",
			want: "普通的正文段落。",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.text); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "main", "501-600"), 0o755); err != nil {
		t.Fatal(err)
	}
	raw := "---\ntitle: test\n---\n# 标题\n\n内容"
	if err := os.WriteFile(filepath.Join(dir, "main", "501-600", "588.md"), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadDocument(dir, "main/501-600/588")
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	if doc.ID != "doc_main_501-600_588" {
		t.Errorf("ID = %q", doc.ID)
	}
	if doc.DocID != "main/501-600/588" {
		t.Errorf("DocID = %q", doc.DocID)
	}
	if strings.Contains(doc.Text, "title:") {
		t.Errorf("front matter survived cleaning: %q", doc.Text)
	}
	if !strings.HasPrefix(doc.Text, "# 标题") {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestLoadDocumentMissing(t *testing.T) {
	if _, err := LoadDocument(t.TempDir(), "main/nope"); err == nil {
		t.Fatal("expected error for missing document")
	}
}
