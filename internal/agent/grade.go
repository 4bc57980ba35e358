package agent

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var digitsRe = regexp.MustCompile(`\d+`)

// parseGradeResponse turns the grader's reply into the selected document
// indices (0-based, ascending, deduplicated).
//
//	"NONE"          → empty selection
//	"ALL"           → every document
//	"1,3,5" etc.    → listed documents; out-of-range numbers dropped
//	anything else   → fail open: keep all documents
//
// A reply that contains digits is trusted even if every number is out of
// range (a valid, possibly empty selection). A reply with no digits that
// is not NONE or ALL is unparseable, so all documents are kept.
func parseGradeResponse(response string, docCount int) []int {
	normalized := strings.ToUpper(strings.TrimSpace(response))

	switch normalized {
	case "NONE":
		return nil
	case "ALL":
		return allIndices(docCount)
	}

	numbers := digitsRe.FindAllString(normalized, -1)
	if len(numbers) == 0 {
		// Unparseable reply: fail open.
		return allIndices(docCount)
	}

	seen := make(map[int]bool)
	var indices []int
	for _, n := range numbers {
		v, err := strconv.Atoi(n)
		if err != nil || v < 1 || v > docCount {
			continue
		}
		if !seen[v-1] {
			seen[v-1] = true
			indices = append(indices, v-1)
		}
	}
	sort.Ints(indices)
	return indices
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
