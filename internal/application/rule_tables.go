package application

import (
	"regexp"
	"strings"
)

const (
	thresholdHigh   = 0.8
	thresholdMedium = 0.6
	thresholdLow    = 0.4
)

// KeywordCategory is a set of substrings that each add Weight to a score when
// present in a lowercased objective.
type KeywordCategory struct {
	Name     string
	Weight   float64
	Keywords []string
}

// RuleTables holds every static pattern the rule classifier and decomposer
// consult. Values are built once and never mutated.
type RuleTables struct {
	URLPatterns        []*regexp.Regexp
	BrowserKeywords    []KeywordCategory
	WebContextPatterns []NamedPattern
	DesktopKeywords    []KeywordCategory
	MixedPatterns      []NamedPattern

	SequentialIndicators []*regexp.Regexp
	TaskBoundaries       []*regexp.Regexp
	ClauseSeparator      *regexp.Regexp
	ClauseVerbs          map[string]struct{}
	FileDependencies     []*regexp.Regexp
	UnnamedFileSaves     []*regexp.Regexp
}

type NamedPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

func DefaultRuleTables() RuleTables {
	return RuleTables{
		URLPatterns: compileAll(
			`https?://[^\s]+`,
			`www\.[^\s]+\.[a-z]{2,}`,
			`[^\s]+\.(?:com|org|net|edu|gov|io|co|ai)`,
			`[^\s]+\.local`,
		),
		BrowserKeywords: []KeywordCategory{
			{Name: "websites", Weight: 0.25, Keywords: []string{
				"website", "webpage", "site", "page", "link", "url", "domain",
				"online", "web app", "web application", "portal", "dashboard",
			}},
			{Name: "popular_services", Weight: 0.4, Keywords: []string{
				"gmail", "youtube", "google", "facebook", "twitter", "linkedin",
				"instagram", "tiktok", "reddit", "github", "stackoverflow",
				"amazon", "netflix", "spotify", "discord", "slack", "zoom",
			}},
			{Name: "web_actions", Weight: 0.3, Keywords: []string{
				"login", "signin", "signup", "register", "download", "upload",
				"browse", "search online", "google search", "web search", "search google",
				"stream", "watch video", "play video", "online shopping",
				"buy online", "purchase", "checkout", "payment",
			}},
			{Name: "browser_specific", Weight: 0.4, Keywords: []string{
				"chrome", "firefox", "safari", "edge", "browser", "tab", "bookmark",
				"refresh", "reload", "back button", "forward", "address bar",
			}},
			{Name: "email_web", Weight: 0.45, Keywords: []string{
				"email", "send email", "compose email", "check email", "inbox",
				"reply", "forward email", "attach file to email",
			}},
		},
		WebContextPatterns: namedWordPatterns(
			"navigate to", "go to", "visit", "open in browser",
			"send email", "compose email", "check email",
			"watch video", "stream", "play video",
			"social media", "post on", "share on",
			"online shopping", "buy online", "purchase",
			"fill form", "submit form", "click link",
			"web scraping", "extract data", "automation",
		),
		DesktopKeywords: []KeywordCategory{
			{Name: "applications", Weight: 0.4, Keywords: []string{
				"notepad", "calculator", "calc", "file explorer", "explorer", "settings", "control panel",
				"task manager", "registry", "cmd", "powershell", "terminal", "command prompt",
				"microsoft word", "microsoft excel", "libreoffice",
				"word", "excel", "powerpoint", "outlook desktop", "teams desktop",
				"photoshop", "illustrator", "vscode", "visual studio", "pycharm",
				"paint", "wordpad", "snipping tool", "screenshot tool",
			}},
			{Name: "file_operations", Weight: 0.3, Keywords: []string{
				"folder", "file", "directory", "desktop", "documents", "downloads",
				"save to", "save as", "organize", "move file", "copy file",
				"delete file", "rename file", "create folder", "zip", "unzip",
			}},
			{Name: "system_operations", Weight: 0.35, Keywords: []string{
				"volume", "brightness", "wallpaper", "screen resolution",
				"keyboard shortcuts", "mouse settings", "display settings",
				"network settings", "wifi", "bluetooth", "printer",
				"system volume", "adjust volume", "sound settings",
			}},
			{Name: "desktop_actions", Weight: 0.2, Keywords: []string{
				"right click", "context menu", "drag and drop", "select all",
				"copy", "paste", "cut", "undo", "redo", "minimize", "maximize",
			}},
		},
		MixedPatterns: []NamedPattern{
			named(`download.*(?:and|then).*(?:save|organize|move)`),
			named(`(?:email|send).*(?:file|document|attachment)`),
			named(`(?:research|find).*(?:and|then).*(?:document|write|save)`),
			named(`(?:browse|search).*(?:and|then).*(?:create|make|write)`),
		},
		SequentialIndicators: compileAll(
			`\band then\b`,
			`\bafter\b`,
			`\bnext\b`,
			`\bthen\b`,
			`\bfollowed by\b`,
			`\bonce.*(?:done|complete|finished)\b`,
			`\bstep \d+\b`,
			`\bfirst.*(?:then|next)\b`,
			`\bfinally\b`,
			`\blater\b`,
			`\bsubsequently\b`,
		),
		TaskBoundaries: compileAll(
			`\band then\b`,
			`\bafter that\b`,
			`\bnext\b`,
			`\bthen\b`,
			`\bfollowed by\b`,
			`\bonce.*(?:done|complete|finished)\b`,
			`\bafter.*(?:saving|creating|opening|completing)\b`,
		),
		ClauseSeparator: regexp.MustCompile(`(?i)\s*[,;]\s*(?:(?:and|then)\s+)?`),
		ClauseVerbs: wordSet(
			"open", "close", "launch", "start", "run", "type", "write", "enter",
			"save", "create", "rename", "delete", "copy", "paste", "move", "print",
			"send", "mail", "email", "compose", "reply", "forward", "attach",
			"go", "navigate", "visit", "browse", "search", "find", "download", "upload",
			"click", "press", "select", "play", "watch", "check", "log", "login", "sign",
		),
		FileDependencies: compileAll(
			`\bsave.*(?:as|to)\s+([^\s]+)`,
			`\bcreate.*file.*named?\s+([^\s]+)`,
			`\bname.*(?:it|file)\s+(?:to\s+)?([^\s]+)`,
			`\bfile.*called\s+([^\s]+)`,
		),
		UnnamedFileSaves: compileAll(
			`\bsave\s+(?:the|this|that|it|my)?\s*(file|document|spreadsheet|presentation|image|note|notes)\b`,
		),
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}

	return out
}

func named(pattern string) NamedPattern {
	return NamedPattern{Name: pattern, Pattern: regexp.MustCompile(`(?i)\b` + pattern + `\b`)}
}

func namedWordPatterns(phrases ...string) []NamedPattern {
	out := make([]NamedPattern, 0, len(phrases))
	for _, phrase := range phrases {
		out = append(out, NamedPattern{
			Name:    phrase,
			Pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
		})
	}

	return out
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}

	return set
}
