// Package careguide parses the free-text care guides produced by the legacy
// heading-convention prompt.
package careguide

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/greenthumb-app/greenthumb/pkg/models"
)

// NoSummary is used when the response has no first line.
const NoSummary = "No summary available."

// headingPattern matches "### Topic:" headings. The marker is case-sensitive
// and the topic runs up to the first colon.
var headingPattern = regexp.MustCompile(`^###\s*(.+?):`)

// LegacyGuide is the result of parsing a free-text guide.
type LegacyGuide struct {
	Summary      string                   `json:"summary"`
	Instructions []models.CareInstruction `json:"instructions"`
}

// Parse splits a free-text guide into a summary and topic sections.
//
// The first line is the summary, verbatim. A heading line starts a new
// instruction with empty details; every later non-blank line is trimmed and
// appended to the most recent instruction followed by a single space. Lines
// before the first heading are dropped.
func Parse(text string) LegacyGuide {
	lines := strings.Split(text, "\n")

	summary := lines[0]
	if summary == "" {
		summary = NoSummary
	}

	instructions := []models.CareInstruction{}
	for _, line := range lines[1:] {
		if match := headingPattern.FindStringSubmatch(line); match != nil {
			instructions = append(instructions, models.CareInstruction{
				Topic:   strings.TrimSpace(match[1]),
				Details: "",
			})
			continue
		}

		trimmed := strings.TrimSpace(line)
		if len(instructions) > 0 && trimmed != "" {
			instructions[len(instructions)-1].Details += trimmed + " "
		}
	}

	return LegacyGuide{Summary: summary, Instructions: instructions}
}

// Prompt is the free-text prompt whose output Parse understands.
func Prompt(plantName string) string {
	return fmt.Sprintf("Provide detailed care instructions for a %s. "+
		"For each category, use a heading like '### Topic:'. "+
		"Include the following categories: %s. "+
		"Provide a brief, one-sentence summary at the very top.",
		plantName, joinTopics(models.CanonicalTopics))
}

func joinTopics(topics []string) string {
	if len(topics) < 2 {
		return strings.Join(topics, "")
	}
	return strings.Join(topics[:len(topics)-1], ", ") + ", and " + topics[len(topics)-1]
}
