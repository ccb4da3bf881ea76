package service

import (
	"regexp"
	"strings"
)

// UsernameIndex maps usernames to numeric user IDs.
type UsernameIndex map[string]uint

// Content that contains more than this many "user/" occurrences is treated
// as pathological and yields no mentions.
const maxMentionOccurrences = 1000

var (
	// HTML-flavored content: the token runs until the first quote or slash.
	htmlMentionRe = regexp.MustCompile(`user/([^"/]+)`)
	// Plain content: word characters and dashes only.
	plainMentionRe = regexp.MustCompile(`user/([\w-]+)`)
)

// ExtractMentions resolves user/<username> references in content against the
// directory. Output preserves first-seen order and keeps duplicates; unknown
// usernames are dropped silently.
func ExtractMentions(content string, index UsernameIndex) []uint {
	if strings.Count(content, "user/") > maxMentionOccurrences {
		return nil
	}

	re := plainMentionRe
	if strings.Contains(content, "<p") {
		re = htmlMentionRe
	}

	matches := re.FindAllStringSubmatch(content, -1)
	var ids []uint
	for _, m := range matches {
		if id, ok := index[m[1]]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
