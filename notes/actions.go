package notes

import (
	"regexp"
	"strings"
)

// actionPatterns pick out sentences that commit someone to doing
// something. Matching is case-insensitive; the first hit settles a
// sentence.
var actionPatterns = compilePatterns(
	`\bi need to\b`,
	`\bi should\b`,
	`\bi must\b`,
	`\bi'll\b`,
	`\bi will\b`,
	`\bwe need to\b`,
	`\bwe should\b`,
	`\bnext step\b`,
	`\btodo\b`,
	`\bto-do\b`,
	`\baction item\b`,
	`\bfollow up\b`,
	`\bfollow-up\b`,
	`\bemail\b`,
	`\bcall\b`,
	`\btext\b`,
	`\bschedule\b`,
	`\bsend\b`,
	`\bsubmit\b`,
	`\bupdate\b`,
	`\bcreate\b`,
	`\bfinish\b`,
)

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// extractActions collects matching sentences in transcript order,
// dropping duplicates that differ only in case or spacing.
func extractActions(sentences []string) []string {
	actions := []string{}
	seen := make(map[string]struct{})
	for _, s := range sentences {
		if !isAction(s) {
			continue
		}
		key := spaceRun.ReplaceAllString(strings.ToLower(s), " ")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		actions = append(actions, s)
		if len(actions) == maxActions {
			break
		}
	}
	return actions
}

func isAction(s string) bool {
	for _, p := range actionPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
