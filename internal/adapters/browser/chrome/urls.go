package chrome

import (
	"regexp"
	"strings"
)

var (
	explicitURLPattern = regexp.MustCompile(`(?i)\bhttps?://[^\s,;'"<>]+`)
	bareHostPattern    = regexp.MustCompile(`(?i)\b(?:www\.)?[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|org|net|io|dev|edu|gov|co|ai|app)\b(?:/[^\s,;'"<>]*)?`)
	emailPattern       = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	wordPattern        = regexp.MustCompile(`[a-z0-9]+`)
)

var knownServices = map[string]string{
	"gmail":     "https://mail.google.com/",
	"youtube":   "https://www.youtube.com/",
	"google":    "https://www.google.com/",
	"github":    "https://github.com/",
	"outlook":   "https://outlook.live.com/",
	"facebook":  "https://www.facebook.com/",
	"twitter":   "https://x.com/",
	"linkedin":  "https://www.linkedin.com/",
	"amazon":    "https://www.amazon.com/",
	"reddit":    "https://www.reddit.com/",
	"wikipedia": "https://www.wikipedia.org/",
	"netflix":   "https://www.netflix.com/",
	"instagram": "https://www.instagram.com/",
}

// StartURL picks where the browser should open for an objective: the first
// explicit URL, then the first bare host name, then the first well-known
// service mentioned by name. It returns "" when nothing matches.
func StartURL(objective string) string {
	if match := explicitURLPattern.FindString(objective); match != "" {
		return strings.TrimRight(match, ".)")
	}

	withoutEmails := emailPattern.ReplaceAllString(objective, " ")
	if match := bareHostPattern.FindString(withoutEmails); match != "" {
		return "https://" + strings.TrimRight(match, ".)")
	}

	for _, word := range wordPattern.FindAllString(strings.ToLower(objective), -1) {
		if url, ok := knownServices[word]; ok {
			return url
		}
	}

	return ""
}
