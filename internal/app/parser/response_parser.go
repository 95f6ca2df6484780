// Package parser turns a free-form AI answer into explanation, code and steps.
//
// Parsing is heuristic and total: any input yields a result. Known limits:
// only the first two fenced blocks are kept (snippet, optimized version) and
// step detection also picks up numbered lines inside code blocks or prose.
package parser

import (
	"regexp"
	"strings"

	"problem_solver/internal/domain/model"
)

// DefaultCodeLanguage is used for fences without a language tag.
const DefaultCodeLanguage = "text"

var (
	codeFenceRe = regexp.MustCompile("(?s)```([\\w+#.-]*)[ \\t]*\\r?\\n(.*?)```")
	stepLineRe  = regexp.MustCompile(`(?m)^\d+\.[ \t]+(.+)$`)
)

type ParsedResponse struct {
	Explanation string
	Code        model.CodeBlock
	Steps       []model.Step
}

type fencedBlock struct {
	language string
	content  string
	start    int
}

func Parse(raw string) ParsedResponse {
	blocks := extractCodeBlocks(raw)

	var parsed ParsedResponse
	if len(blocks) > 0 {
		parsed.Code = model.CodeBlock{
			Language: blocks[0].language,
			Snippet:  blocks[0].content,
		}
		if len(blocks) > 1 {
			parsed.Code.OptimizedVersion = blocks[1].content
		}
		parsed.Explanation = strings.TrimSpace(raw[:blocks[0].start])
	} else {
		parsed.Explanation = firstLines(raw, 3)
	}
	parsed.Steps = extractSteps(raw)
	return parsed
}

func extractCodeBlocks(raw string) []fencedBlock {
	matches := codeFenceRe.FindAllStringSubmatchIndex(raw, -1)
	blocks := make([]fencedBlock, 0, len(matches))
	for _, m := range matches {
		lang := raw[m[2]:m[3]]
		if lang == "" {
			lang = DefaultCodeLanguage
		}
		blocks = append(blocks, fencedBlock{
			language: lang,
			content:  strings.TrimSpace(raw[m[4]:m[5]]),
			start:    m[0],
		})
	}
	return blocks
}

// extractSteps renumbers from 1; the numbers written in the text are ignored.
func extractSteps(raw string) []model.Step {
	var steps []model.Step
	for _, m := range stepLineRe.FindAllStringSubmatch(raw, -1) {
		desc := strings.TrimSpace(m[1])
		if desc == "" {
			continue
		}
		steps = append(steps, model.Step{
			StepNumber:  len(steps) + 1,
			Description: desc,
		})
	}
	return steps
}

func firstLines(raw string, n int) string {
	lines := strings.SplitN(raw, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
