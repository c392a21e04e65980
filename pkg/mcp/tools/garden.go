// Package tools provides MCP tool implementations for greenthumb.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/services"
)

// GardenToolDeps contains dependencies for garden tools.
type GardenToolDeps struct {
	Garden services.GardenService
	Logger *zap.Logger
}

// RegisterGardenTools registers the garden MCP tools.
func RegisterGardenTools(s *server.MCPServer, deps *GardenToolDeps) {
	registerListGardenTool(s, deps)
	registerCareRemindersTool(s, deps)
	registerLogCareEventTool(s, deps)
}

// gardenPlantSummary is a plant without its image, which is a large data URL
// of no use to a model.
type gardenPlantSummary struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Summary        string            `json:"summary"`
	Notes          string            `json:"notes,omitempty"`
	LastWatered    *time.Time        `json:"last_watered,omitempty"`
	LastFertilized *time.Time        `json:"last_fertilized,omitempty"`
	Reminders      []models.Reminder `json:"reminders"`
}

func toGardenPlantSummary(p *models.GardenPlant, reminders []models.Reminder) gardenPlantSummary {
	out := gardenPlantSummary{
		ID:        p.ID,
		Name:      p.Name,
		Summary:   p.Summary,
		Notes:     p.Notes,
		Reminders: reminders,
	}
	if t, ok := p.LastEvent(models.CareActionWatering); ok {
		out.LastWatered = &t
	}
	if t, ok := p.LastEvent(models.CareActionFertilizing); ok {
		out.LastFertilized = &t
	}
	if out.Reminders == nil {
		out.Reminders = []models.Reminder{}
	}
	return out
}

// registerListGardenTool adds the list_garden tool.
func registerListGardenTool(s *server.MCPServer, deps *GardenToolDeps) {
	tool := mcp.NewTool(
		"list_garden",
		mcp.WithDescription(
			"Lists the plants in the user's garden with their care notes, "+
				"last watering and fertilizing dates, and current care reminders.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		plants, err := deps.Garden.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list garden: %w", err)
		}
		all, err := deps.Garden.AllReminders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compute reminders: %w", err)
		}

		byPlant := make(map[int64][]models.Reminder, len(all))
		for _, r := range all {
			byPlant[r.PlantID] = r.Reminders
		}

		result := struct {
			Plants []gardenPlantSummary `json:"plants"`
			Count  int                  `json:"count"`
		}{
			Plants: make([]gardenPlantSummary, 0, len(plants)),
			Count:  len(plants),
		}
		for _, p := range plants {
			result.Plants = append(result.Plants, toGardenPlantSummary(p, byPlant[p.ID]))
		}

		return jsonResult(result)
	})
}

// registerCareRemindersTool adds the care_reminders tool.
func registerCareRemindersTool(s *server.MCPServer, deps *GardenToolDeps) {
	tool := mcp.NewTool(
		"care_reminders",
		mcp.WithDescription(
			"Returns the watering and fertilizing reminders for one plant: "+
				"whether each is overdue, due today or upcoming, and in how many days.",
		),
		mcp.WithNumber(
			"plant_id",
			mcp.Required(),
			mcp.Description("Id of the plant, as returned by list_garden"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := plantIDArg(req, "plant_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		reminders, err := deps.Garden.Reminders(ctx, id)
		if err != nil {
			return serviceErrorResult(err, nil)
		}
		return jsonResult(reminders)
	})
}

// registerLogCareEventTool adds the log_care_event tool.
func registerLogCareEventTool(s *server.MCPServer, deps *GardenToolDeps) {
	tool := mcp.NewTool(
		"log_care_event",
		mcp.WithDescription(
			"Records that a plant was watered or fertilized just now and returns "+
				"the updated reminders.",
		),
		mcp.WithNumber(
			"plant_id",
			mcp.Required(),
			mcp.Description("Id of the plant, as returned by list_garden"),
		),
		mcp.WithString(
			"action",
			mcp.Required(),
			mcp.Enum(string(models.CareActionWatering), string(models.CareActionFertilizing)),
			mcp.Description("The care action that was performed"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := plantIDArg(req, "plant_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		action, err := models.ParseCareAction(req.GetString("action", ""))
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		plant, err := deps.Garden.LogCare(ctx, id, action, time.Time{})
		if err != nil {
			var details any
			if plant != nil {
				details = toGardenPlantSummary(plant, nil)
			}
			return serviceErrorResult(err, details)
		}

		reminders, err := deps.Garden.Reminders(ctx, id)
		if err != nil {
			return serviceErrorResult(err, nil)
		}

		deps.Logger.Debug("Care event logged via MCP",
			zap.Int64("plant_id", id),
			zap.String("action", string(action)))

		return jsonResult(toGardenPlantSummary(plant, reminders.Reminders))
	})
}
