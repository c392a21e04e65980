package tools

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenthumb-app/greenthumb/pkg/careguide"
)

func TestParseCareTextTool(t *testing.T) {
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterCareGuideTools(s)

	text, resp := callTool(t, s, "parse_care_text", map[string]any{
		"text": "Snake plants are hardy.\n### Watering:\nEvery 2-3 weeks.\n\n### Light:\nIndirect light.",
	})
	require.False(t, resp.Result.IsError, text)

	var got careguide.LegacyGuide
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "Snake plants are hardy.", got.Summary)
	require.Len(t, got.Instructions, 2)
	assert.Equal(t, "Watering", got.Instructions[0].Topic)
	assert.Equal(t, "Every 2-3 weeks. ", got.Instructions[0].Details)

	t.Run("missing text", func(t *testing.T) {
		text, resp := callTool(t, s, "parse_care_text", map[string]any{})
		require.True(t, resp.Result.IsError)
		assert.Contains(t, text, "invalid_parameters")
	})
}
