package agent

import (
	"fmt"
	"strings"
)

// archiveURLFormat is the public archive location of a source document.
const archiveURLFormat = "https://archive.bedtime.news/%s.md"

// EpisodeName maps a document ID to its display name.
//
// Examples:
//
//	"main/501-600/588"   → "睡前消息588"
//	"reference/1-100/42" → "参考信息42"
//	"opinion/123"        → "高见123"
//	"daily/2023/11/15"   → "每日新闻15"
//	"commercial/5"       → "讲点黑话5"
//	"business/10"        → "产经破壁机10"
//	"livestream/2023/05/20" → "直播问答记录2023/05/20" (path kept verbatim)
func EpisodeName(docID string) string {
	if rest, ok := strings.CutPrefix(docID, "livestream/"); ok {
		return "直播问答记录" + rest
	}

	// Episode number is the last path segment, without the .md extension.
	parts := strings.Split(docID, "/")
	episodeNum := docID
	if len(parts) > 0 {
		episodeNum = parts[len(parts)-1]
	}
	episodeNum = strings.ReplaceAll(episodeNum, ".md", "")

	switch {
	case strings.HasPrefix(docID, "main/"):
		return "睡前消息" + episodeNum
	case strings.HasPrefix(docID, "reference/"):
		return "参考信息" + episodeNum
	case strings.HasPrefix(docID, "opinion/"):
		return "高见" + episodeNum
	case strings.HasPrefix(docID, "daily/"):
		return "每日新闻" + episodeNum
	case strings.HasPrefix(docID, "commercial/"):
		return "讲点黑话" + episodeNum
	case strings.HasPrefix(docID, "business/"):
		return "产经破壁机" + episodeNum
	default:
		return "文档" + episodeNum
	}
}

// citationFor renders the markdown citation link for a document.
func citationFor(docID string) string {
	return fmt.Sprintf("[[%s]]("+archiveURLFormat+")", EpisodeName(docID), docID)
}
