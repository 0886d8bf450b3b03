package application

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/bnema/operate-cli/internal/domain"
)

type SegmentClassifier interface {
	ClassifySingle(objective string) domain.ClassificationResult
}

// Decomposer splits multi-step objectives into ordered subtasks. Each segment
// is classified on its own, never recursively decomposed.
type Decomposer struct {
	tables   RuleTables
	segments SegmentClassifier
}

func NewDecomposer(tables RuleTables, segments SegmentClassifier) *Decomposer {
	return &Decomposer{tables: tables, segments: segments}
}

type span struct {
	start int
	end   int
}

func (d *Decomposer) IsSequential(objective string) bool {
	text := strings.ToLower(objective)
	for _, p := range d.tables.SequentialIndicators {
		if p.MatchString(text) {
			return true
		}
	}

	return len(d.clauseBoundaries(objective)) > 0
}

// Decompose returns the ordered subtasks of objective, or nil when it carries
// no sequential indicator. Files produced by a segment become dependencies of
// every later segment.
func (d *Decomposer) Decompose(objective string) []domain.SubTask {
	if !d.IsSequential(objective) {
		return nil
	}

	segments := d.Split(objective)
	subtasks := make([]domain.SubTask, 0, len(segments))
	dependencies := []string{}
	for i, segment := range segments {
		result := d.segments.ClassifySingle(segment)
		subtasks = append(subtasks, domain.SubTask{
			Description:            segment,
			TaskType:               result.TaskType,
			Confidence:             result.Confidence,
			Order:                  i + 1,
			Dependencies:           slices.Clone(dependencies),
			Reasoning:              result.Reasoning,
			FallbackRecommendation: result.FallbackRecommendation,
		})

		for _, dep := range d.ProducedFiles(segment) {
			if !slices.Contains(dependencies, dep) {
				dependencies = append(dependencies, dep)
			}
		}
	}

	return subtasks
}

// Split cuts objective at every boundary phrase. Boundary text is discarded
// and blank segments are dropped.
func (d *Decomposer) Split(objective string) []string {
	var boundaries []span
	for _, p := range d.tables.TaskBoundaries {
		for _, loc := range p.FindAllStringIndex(objective, -1) {
			boundaries = append(boundaries, span{start: loc[0], end: loc[1]})
		}
	}
	boundaries = append(boundaries, d.clauseBoundaries(objective)...)

	if len(boundaries) == 0 {
		return appendSegment(nil, objective)
	}

	slices.SortStableFunc(boundaries, func(a, b span) int {
		return cmp.Or(cmp.Compare(a.start, b.start), cmp.Compare(a.end, b.end))
	})

	var segments []string
	lastEnd := 0
	for _, b := range boundaries {
		if b.start > lastEnd {
			segments = appendSegment(segments, objective[lastEnd:b.start])
		}
		lastEnd = max(lastEnd, b.end)
	}
	if lastEnd < len(objective) {
		segments = appendSegment(segments, objective[lastEnd:])
	}

	return segments
}

// ProducedFiles returns the artifact names a segment is expected to create.
// A generic noun such as "file" is only used when no explicit name is given.
func (d *Decomposer) ProducedFiles(segment string) []string {
	files := captureNames(d.tables.FileDependencies, segment)
	if len(files) == 0 {
		files = captureNames(d.tables.UnnamedFileSaves, segment)
	}

	return files
}

func captureNames(patterns []*regexp.Regexp, segment string) []string {
	var names []string
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(segment, -1) {
			if len(m) < 2 {
				continue
			}
			name := strings.TrimRightFunc(m[1], func(r rune) bool {
				return unicode.IsPunct(r) && r != '_' && r != '/'
			})
			name = strings.Trim(name, `"'`)
			if name == "" || slices.Contains(names, name) {
				continue
			}
			names = append(names, name)
		}
	}

	return names
}

// clauseBoundaries finds comma or semicolon separators that introduce a new
// imperative clause, such as "open word, type a note".
func (d *Decomposer) clauseBoundaries(objective string) []span {
	if d.tables.ClauseSeparator == nil {
		return nil
	}

	var out []span
	for _, loc := range d.tables.ClauseSeparator.FindAllStringIndex(objective, -1) {
		if loc[0] == 0 || loc[1] >= len(objective) {
			continue
		}
		if _, ok := d.tables.ClauseVerbs[leadingWord(objective[loc[1]:])]; ok {
			out = append(out, span{start: loc[0], end: loc[1]})
		}
	}

	return out
}

func leadingWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		end = len(s)
	}

	return strings.ToLower(s[:end])
}

func appendSegment(segments []string, raw string) []string {
	s := strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
	if s == "" {
		return segments
	}

	return append(segments, s)
}
