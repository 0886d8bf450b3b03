package application

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
)

const sequentialConfidence = 0.9

// RuleClassifier infers a task type from static keyword and pattern tables.
// It has no external dependencies and never fails.
type RuleClassifier struct {
	tables     RuleTables
	decomposer *Decomposer
}

var _ ports.TaskClassifier = (*RuleClassifier)(nil)

func NewRuleClassifier() *RuleClassifier {
	return NewRuleClassifierWithTables(DefaultRuleTables())
}

func NewRuleClassifierWithTables(tables RuleTables) *RuleClassifier {
	c := &RuleClassifier{tables: tables}
	c.decomposer = NewDecomposer(tables, c)

	return c
}

func (c *RuleClassifier) Decomposer() *Decomposer {
	return c.decomposer
}

func (c *RuleClassifier) ClassifyTask(_ context.Context, objective string) (domain.ClassificationResult, error) {
	return c.Classify(objective), nil
}

// Classify checks for a multi-step objective first and otherwise falls back to
// single-task classification.
func (c *RuleClassifier) Classify(objective string) domain.ClassificationResult {
	if c.decomposer.IsSequential(objective) {
		subtasks := c.decomposer.Decompose(objective)
		if len(subtasks) > 1 {
			return domain.ClassificationResult{
				TaskType:         domain.TaskTypeSequential,
				Confidence:       sequentialConfidence,
				Reasoning:        fmt.Sprintf("Sequential task detected with %d subtasks", len(subtasks)),
				DetectedPatterns: []string{"sequential_indicators"},
				Subtasks:         subtasks,
			}
		}
	}

	return c.ClassifySingle(objective)
}

// ClassifySingle classifies objective as one task, without sequential
// detection. Layers are evaluated in precedence order and a high-confidence
// URL, mixed or desktop match returns immediately.
func (c *RuleClassifier) ClassifySingle(objective string) domain.ClassificationResult {
	text := strings.ToLower(strings.TrimSpace(objective))
	var patterns, reasons []string

	urlConfidence, urlMatches := c.detectURLs(text)
	if urlConfidence > 0 {
		patterns = append(patterns, urlMatches...)
		reasons = append(reasons, fmt.Sprintf("URL/domain detected (confidence: %.2f)", urlConfidence))
		if urlConfidence >= thresholdHigh {
			return domain.ClassificationResult{
				TaskType:         domain.TaskTypeBrowser,
				Confidence:       urlConfidence,
				Reasoning:        "High confidence browser task: " + strings.Join(reasons, ", "),
				DetectedPatterns: patterns,
			}
		}
	}

	mixedConfidence, mixedMatches := patternScore(c.tables.MixedPatterns, text, 0.8)
	if mixedConfidence >= thresholdMedium {
		patterns = append(patterns, mixedMatches...)
		reasons = append(reasons, fmt.Sprintf("Mixed task patterns detected (confidence: %.2f)", mixedConfidence))
		return domain.ClassificationResult{
			TaskType:               domain.TaskTypeMixed,
			Confidence:             mixedConfidence,
			Reasoning:              "Mixed browser/desktop task: " + strings.Join(reasons, ", "),
			DetectedPatterns:       patterns,
			FallbackRecommendation: domain.Fallback(domain.TaskTypeBrowser),
		}
	}

	desktopConfidence, desktopMatches := keywordScore(c.tables.DesktopKeywords, text)
	if desktopConfidence > 0 {
		patterns = append(patterns, desktopMatches...)
		reasons = append(reasons, fmt.Sprintf("Desktop application/system task (confidence: %.2f)", desktopConfidence))
		if desktopConfidence >= thresholdHigh {
			return domain.ClassificationResult{
				TaskType:         domain.TaskTypeDesktop,
				Confidence:       desktopConfidence,
				Reasoning:        "High confidence desktop task: " + strings.Join(reasons, ", "),
				DetectedPatterns: patterns,
			}
		}
	}

	browserConfidence, browserMatches := keywordScore(c.tables.BrowserKeywords, text)
	if browserConfidence > 0 {
		patterns = append(patterns, browserMatches...)
		reasons = append(reasons, fmt.Sprintf("Browser keywords detected (confidence: %.2f)", browserConfidence))
	}

	contextConfidence, contextMatches := patternScore(c.tables.WebContextPatterns, text, 0.85)
	if contextConfidence > 0 {
		patterns = append(patterns, contextMatches...)
		reasons = append(reasons, fmt.Sprintf("Web context patterns detected (confidence: %.2f)", contextConfidence))
	}

	combined := round(max(urlConfidence, browserConfidence*0.8, contextConfidence*0.7))
	reasoning := strings.Join(reasons, ", ")

	switch {
	case combined >= thresholdMedium && desktopConfidence >= combined*1.2:
		fallback := domain.TaskTypeDesktop
		if combined > desktopConfidence {
			fallback = domain.TaskTypeBrowser
		}
		return domain.ClassificationResult{
			TaskType:               domain.TaskTypeAmbiguous,
			Confidence:             max(combined, desktopConfidence),
			Reasoning:              "Ambiguous task with both browser and desktop indicators: " + reasoning,
			DetectedPatterns:       patterns,
			FallbackRecommendation: domain.Fallback(fallback),
		}
	case combined >= thresholdMedium:
		return domain.ClassificationResult{
			TaskType:         domain.TaskTypeBrowser,
			Confidence:       combined,
			Reasoning:        "Browser task: " + reasoning,
			DetectedPatterns: patterns,
		}
	case desktopConfidence >= thresholdHigh,
		desktopConfidence >= thresholdMedium && combined < thresholdMedium:
		return domain.ClassificationResult{
			TaskType:         domain.TaskTypeDesktop,
			Confidence:       desktopConfidence,
			Reasoning:        "Desktop task: " + reasoning,
			DetectedPatterns: patterns,
		}
	case combined >= thresholdLow && combined > desktopConfidence:
		return domain.ClassificationResult{
			TaskType:         domain.TaskTypeBrowser,
			Confidence:       combined,
			Reasoning:        "Browser task: " + reasoning,
			DetectedPatterns: patterns,
		}
	}

	if reasoning == "" {
		reasoning = "No clear indicators detected"
	}

	return domain.ClassificationResult{
		TaskType:               domain.TaskTypeAmbiguous,
		Confidence:             max(combined, desktopConfidence, 0.3),
		Reasoning:              "Low confidence classification: " + reasoning,
		DetectedPatterns:       patterns,
		FallbackRecommendation: domain.Fallback(domain.TaskTypeDesktop),
	}
}

func (c *RuleClassifier) detectURLs(text string) (float64, []string) {
	var matches []string
	for _, p := range c.tables.URLPatterns {
		matches = append(matches, p.FindAllString(text, -1)...)
	}
	if len(matches) == 0 {
		return 0, nil
	}

	return round(math.Min(0.99, 0.85+0.05*float64(len(matches)))), matches
}

func keywordScore(categories []KeywordCategory, text string) (float64, []string) {
	var total float64
	var matches []string
	for _, category := range categories {
		for _, keyword := range category.Keywords {
			if strings.Contains(text, keyword) {
				matches = append(matches, keyword)
				total += category.Weight
			}
		}
	}

	return round(math.Min(0.95, total)), matches
}

func patternScore(patterns []NamedPattern, text string, ceiling float64) (float64, []string) {
	var matches []string
	for _, p := range patterns {
		if p.Pattern.MatchString(text) {
			matches = append(matches, p.Name)
		}
	}
	if len(matches) == 0 {
		return 0, nil
	}

	return round(math.Min(ceiling, 0.6+0.1*float64(len(matches)))), matches
}

// round trims float noise so that sums like 0.4+0.4 compare cleanly against
// the thresholds.
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
