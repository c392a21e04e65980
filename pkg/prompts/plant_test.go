package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenthumb-app/greenthumb/pkg/llm"
)

func TestBuildCareGuidePrompt(t *testing.T) {
	prompt := BuildCareGuidePrompt("Monstera deliciosa")

	assert.Contains(t, prompt, "# Care Guide: Monstera deliciosa")
	for _, topic := range []string{"- Sunlight\n", "- Watering\n", "- Soil\n", "- Temperature\n", "- Humidity\n", "- Fertilizing\n"} {
		assert.Contains(t, prompt, topic)
	}
	assert.Contains(t, prompt, "For Watering and Fertilizing only")
	assert.Contains(t, prompt, "Return ONLY the JSON")
}

func TestCareGuideSchema(t *testing.T) {
	s := CareGuideSchema()

	assert.Equal(t, llm.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"plantName", "summary", "instructions"}, s.Required)

	item := s.Properties["instructions"].Items
	require.NotNil(t, item)
	assert.Equal(t, []string{"Sunlight", "Watering", "Soil", "Temperature", "Humidity", "Fertilizing"},
		item.Properties["topic"].Enum)

	freq := item.Properties["frequencyDays"]
	assert.True(t, freq.Nullable)
	assert.Equal(t, llm.TypeInteger, freq.Properties["max"].Type)
	assert.NotContains(t, item.Required, "frequencyDays")
}

func TestDiagnosisSchema(t *testing.T) {
	s := DiagnosisSchema()

	assert.Equal(t, llm.TypeArray, s.Type)
	require.NotNil(t, s.Items)
	assert.Equal(t, []string{"High", "Medium", "Low"}, s.Items.Properties["confidence"].Enum)
	assert.Equal(t, llm.TypeArray, s.Items.Properties["treatment"].Properties["organic"].Type)
}

func TestBuildDiagnosisPrompt(t *testing.T) {
	prompt := BuildDiagnosisPrompt()

	assert.Contains(t, prompt, `"High", "Medium", "Low"`)
	assert.Contains(t, prompt, "empty array `[]`")
}
