package application

import (
	"fmt"
	"strings"

	"github.com/bnema/operate-cli/internal/domain"
)

const DefaultBrowserThreshold = 0.6

// RouteOverrides are the run-level routing switches. ForceBrowser and
// DisableBrowser must not both be set; Validate reports that conflict.
type RouteOverrides struct {
	ForceBrowser     bool
	DisableBrowser   bool
	BrowserThreshold float64
}

func DefaultRouteOverrides() RouteOverrides {
	return RouteOverrides{BrowserThreshold: DefaultBrowserThreshold}
}

func (o RouteOverrides) Validate() error {
	if o.ForceBrowser && o.DisableBrowser {
		return domain.ErrConflictingRouteOverrides
	}
	if o.BrowserThreshold < 0 || o.BrowserThreshold > 1 {
		return fmt.Errorf("%w: got %.2f", domain.ErrInvalidThreshold, o.BrowserThreshold)
	}

	return nil
}

type Route struct {
	Executor domain.Executor `json:"executor"`
	Reason   string          `json:"reason"`
}

type Router struct {
	overrides RouteOverrides
}

func NewRouter(overrides RouteOverrides) *Router {
	return &Router{overrides: overrides}
}

// Route picks exactly one executor for a classified (sub)task.
func (r *Router) Route(result domain.ClassificationResult) Route {
	if r.overrides.ForceBrowser {
		return Route{Executor: domain.ExecutorBrowser, Reason: "browser agent forced"}
	}
	if r.overrides.DisableBrowser {
		return Route{Executor: domain.ExecutorDesktop, Reason: "browser agent disabled"}
	}

	switch result.TaskType {
	case domain.TaskTypeBrowser:
		if result.Confidence >= r.overrides.BrowserThreshold {
			return Route{
				Executor: domain.ExecutorBrowser,
				Reason:   fmt.Sprintf("browser task (confidence %.2f >= %.2f)", result.Confidence, r.overrides.BrowserThreshold),
			}
		}
		return Route{
			Executor: domain.ExecutorDesktop,
			Reason:   fmt.Sprintf("browser confidence %.2f below threshold %.2f", result.Confidence, r.overrides.BrowserThreshold),
		}
	case domain.TaskTypeMixed:
		return Route{Executor: domain.ExecutorBrowser, Reason: "mixed task starts in the browser"}
	case domain.TaskTypeAmbiguous:
		if result.FallbackOr(domain.TaskTypeDesktop) == domain.TaskTypeBrowser {
			return Route{Executor: domain.ExecutorBrowser, Reason: "ambiguous task, browser recommended"}
		}
		return Route{Executor: domain.ExecutorDesktop, Reason: "ambiguous task, desktop recommended"}
	default:
		return Route{Executor: domain.ExecutorDesktop, Reason: fmt.Sprintf("%s task", result.TaskType)}
	}
}

// SubtaskRoute pairs a subtask with the executor the router picked for it.
type SubtaskRoute struct {
	SubTask domain.SubTask `json:"subtask"`
	Route   Route          `json:"route"`
}

// RouteSubtasks routes every subtask independently in ascending order.
func (r *Router) RouteSubtasks(result domain.ClassificationResult) []SubtaskRoute {
	subtasks := result.OrderedSubtasks()
	out := make([]SubtaskRoute, 0, len(subtasks))
	for _, subtask := range subtasks {
		out = append(out, SubtaskRoute{SubTask: subtask, Route: r.Route(subtask.Classification())})
	}

	return out
}

// RoutingRecommendation is the human-readable routing hint shown by classify.
func RoutingRecommendation(result domain.ClassificationResult) string {
	switch result.TaskType {
	case domain.TaskTypeBrowser:
		return "Route to browser agent"
	case domain.TaskTypeDesktop:
		return "Route to desktop OCR system"
	case domain.TaskTypeMixed:
		return "Route to mixed task coordinator (start with browser agent)"
	case domain.TaskTypeSequential:
		return "Route to sequential task executor"
	default:
		return fmt.Sprintf("Ambiguous task - route to %s system with fallback enabled", result.FallbackOr(domain.TaskTypeDesktop))
	}
}

// KeywordFallback is the last-resort classification used when no classifier
// produced a result.
func KeywordFallback(objective string, cause error) domain.ClassificationResult {
	fallback := domain.TaskTypeDesktop
	if hasBrowserIndicator(objective) {
		fallback = domain.TaskTypeBrowser
	}

	reasoning := "keyword-only fallback"
	if cause != nil {
		reasoning = fmt.Sprintf("keyword-only fallback: %v", cause)
	}

	return domain.ClassificationResult{
		TaskType:               domain.TaskTypeAmbiguous,
		Confidence:             0.3,
		Reasoning:              reasoning,
		DetectedPatterns:       []string{"keyword_fallback"},
		FallbackRecommendation: domain.Fallback(fallback),
	}
}

var browserIndicators = []string{"http", "www", "gmail", "youtube", "google", "website", "browser"}

func hasBrowserIndicator(objective string) bool {
	text := strings.ToLower(objective)
	for _, indicator := range browserIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}

	return false
}
