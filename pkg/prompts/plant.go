// Package prompts holds the prompt text and response schemas for the plant
// capabilities.
package prompts

import (
	"fmt"
	"strings"

	"github.com/greenthumb-app/greenthumb/pkg/llm"
	"github.com/greenthumb-app/greenthumb/pkg/models"
)

// IdentifyPlant is sent together with the photo.
const IdentifyPlant = "Identify the plant in this image. Respond with only the common name of the plant, and nothing else."

// BuildCareGuideSystemMessage returns the system message for care guide requests.
func BuildCareGuideSystemMessage() string {
	return `You are an expert horticulturist. You write short, practical care guides for home gardeners.`
}

// BuildCareGuidePrompt asks for a structured guide covering the canonical topics.
func BuildCareGuidePrompt(plantName string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("# Care Guide: %s\n\n", plantName))
	prompt.WriteString(fmt.Sprintf("Provide detailed care instructions for a %s.\n\n", plantName))

	prompt.WriteString("## Topics\n\n")
	prompt.WriteString("Include exactly one instruction for each of these topics, in this order:\n")
	for _, topic := range models.CanonicalTopics {
		prompt.WriteString(fmt.Sprintf("- %s\n", topic))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Frequency\n\n")
	prompt.WriteString(fmt.Sprintf("For %s and %s only, set `frequencyDays` to the range of days between sessions ",
		models.TopicWatering, models.TopicFertilizing))
	prompt.WriteString("as whole numbers, e.g. `{\"min\": 5, \"max\": 7}`. ")
	prompt.WriteString("Use `null` for every other topic.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `plantName`: the common name of the plant\n")
	prompt.WriteString("- `summary`: a brief, one-sentence summary of how to care for it\n")
	prompt.WriteString("- `instructions`: array of `{topic, details, frequencyDays}`\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// CareGuideSchema describes models.PlantCareGuide.
func CareGuideSchema() *llm.Schema {
	return &llm.Schema{
		Type:     llm.TypeObject,
		Required: []string{"plantName", "summary", "instructions"},
		Properties: map[string]*llm.Schema{
			"plantName": {Type: llm.TypeString, Description: "Common name of the plant"},
			"summary":   {Type: llm.TypeString, Description: "One-sentence care summary"},
			"instructions": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type:     llm.TypeObject,
					Required: []string{"topic", "details"},
					Properties: map[string]*llm.Schema{
						"topic":   {Type: llm.TypeString, Enum: models.CanonicalTopics},
						"details": {Type: llm.TypeString},
						"frequencyDays": {
							Type:        llm.TypeObject,
							Description: "Days between sessions, watering and fertilizing only",
							Nullable:    true,
							Required:    []string{"min", "max"},
							Properties: map[string]*llm.Schema{
								"min": {Type: llm.TypeInteger},
								"max": {Type: llm.TypeInteger},
							},
						},
					},
				},
			},
		},
	}
}

// BuildDiagnosisSystemMessage returns the system message for diagnosis requests.
func BuildDiagnosisSystemMessage() string {
	return `You are a plant pathologist. You diagnose pests, diseases and care problems from photos and recommend safe remedies.`
}

// BuildDiagnosisPrompt is sent together with the photo.
func BuildDiagnosisPrompt() string {
	var prompt strings.Builder

	prompt.WriteString("Examine the plant in this image for diseases, pests or care problems.\n\n")
	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond with a JSON array. Each element describes one suspected problem:\n")
	prompt.WriteString("- `issue`: short name of the problem\n")
	prompt.WriteString("- `description`: what you see and why it points to this problem\n")
	prompt.WriteString("- `confidence`: one of \"High\", \"Medium\", \"Low\"\n")
	prompt.WriteString("- `treatment`: `{organic: [...], chemical: [...]}`, ordered remedy steps\n\n")
	prompt.WriteString("If the plant looks healthy, respond with an empty array `[]`.\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// DiagnosisSchema describes a list of models.Diagnosis.
func DiagnosisSchema() *llm.Schema {
	steps := &llm.Schema{Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}}
	return &llm.Schema{
		Type: llm.TypeArray,
		Items: &llm.Schema{
			Type:     llm.TypeObject,
			Required: []string{"issue", "description", "confidence", "treatment"},
			Properties: map[string]*llm.Schema{
				"issue":       {Type: llm.TypeString},
				"description": {Type: llm.TypeString},
				"confidence":  {Type: llm.TypeString, Enum: confidenceValues()},
				"treatment": {
					Type:     llm.TypeObject,
					Required: []string{"organic", "chemical"},
					Properties: map[string]*llm.Schema{
						"organic":  steps,
						"chemical": steps,
					},
				},
			},
		},
	}
}

func confidenceValues() []string {
	values := make([]string, len(models.ValidConfidences))
	for i, c := range models.ValidConfidences {
		values[i] = string(c)
	}
	return values
}
