package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/kvstore"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/reminder"
	"github.com/greenthumb-app/greenthumb/pkg/repositories"
	"github.com/greenthumb-app/greenthumb/pkg/services"
)

var toolsNow = time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

func newTestGarden(t *testing.T) services.GardenService {
	t.Helper()
	clock := func() time.Time { return toolsNow }
	repo := repositories.NewGardenRepository(kvstore.NewMemoryStore(), "myGarden", zap.NewNop())
	calc := reminder.NewCalculator(reminder.ModeCalendarDays, time.UTC, clock)
	return services.NewGardenService(repo, calc, clock, zap.NewNop())
}

func adoptFern(t *testing.T, garden services.GardenService) *models.GardenPlant {
	t.Helper()
	plant, err := garden.AdoptPlant(context.Background(), services.AdoptRequest{
		Name:    "Boston Fern",
		Summary: "A lush fern that likes humidity.",
		Image:   "data:image/png;base64,iVBORw0KGgo=",
		Instructions: []models.CareInstruction{
			{Topic: "Watering", Details: "Keep soil moist.", FrequencyDays: &models.FrequencyRange{Min: 2, Max: 3}},
			{Topic: "Fertilizing", Details: "Monthly in spring.", FrequencyDays: &models.FrequencyRange{Min: 30, Max: 30}},
		},
	})
	require.NoError(t, err)
	return plant
}

// toolResponse is the parsed tools/call result.
type toolResponse struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool runs a tools/call request through the server and returns the
// text content of the result.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, toolResponse) {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp toolResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	if resp.Error != nil || len(resp.Result.Content) == 0 {
		return "", resp
	}
	return resp.Result.Content[0].Text, resp
}
