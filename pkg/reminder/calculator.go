// Package reminder computes watering and fertilizing reminders from a plant's
// care schedule and event logs.
package reminder

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/greenthumb-app/greenthumb/pkg/models"
)

// Mode selects how the day count between today and the due date is taken.
type Mode string

const (
	// ModeCalendarDays compares calendar dates in the reference location, so
	// an event logged at any time today and due in 7 days reports 7.
	ModeCalendarDays Mode = "calendar"
	// ModeLegacy keeps the last event's time of day on the due date and takes
	// the ceiling of the elapsed fraction of a day against local midnight.
	// Logging an event now with a 7 day interval then reports 8, not 7, once
	// any time has passed since midnight.
	ModeLegacy Mode = "legacy"
)

// ParseMode parses a day-boundary mode. Empty selects ModeCalendarDays.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCalendarDays:
		return ModeCalendarDays, nil
	case ModeLegacy:
		return ModeLegacy, nil
	default:
		return "", fmt.Errorf("unknown day boundary mode %q (want %q or %q)", s, ModeCalendarDays, ModeLegacy)
	}
}

const (
	textUnavailable = "No schedule available"
	textDueToday    = "Due today!"
)

// Calculator turns care logs into reminders. It is safe for concurrent use.
type Calculator struct {
	mode Mode
	loc  *time.Location
	now  func() time.Time
}

// NewCalculator creates a calculator. A nil location uses time.Local and a
// nil clock uses time.Now.
func NewCalculator(mode Mode, loc *time.Location, now func() time.Time) *Calculator {
	if mode == "" {
		mode = ModeCalendarDays
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Calculator{mode: mode, loc: loc, now: now}
}

// Mode returns the configured day-boundary mode.
func (c *Calculator) Mode() Mode {
	return c.mode
}

// ForPlant returns the reminders for every care action, in models.CareActions order.
func (c *Calculator) ForPlant(plant *models.GardenPlant) models.PlantReminders {
	out := models.PlantReminders{
		PlantID:   plant.ID,
		PlantName: plant.Name,
		Reminders: make([]models.Reminder, 0, len(models.CareActions)),
	}
	for _, action := range models.CareActions {
		out.Reminders = append(out.Reminders, c.ForAction(plant, action))
	}
	return out
}

// ForAction computes the reminder for one action of a plant.
func (c *Calculator) ForAction(plant *models.GardenPlant, action models.CareAction) models.Reminder {
	instruction, _ := plant.Instruction(action)
	return c.Compute(action, instruction, plant.Log(action))
}

// Compute computes a reminder from the action's instruction and its log.
// The instruction may be nil.
func (c *Calculator) Compute(action models.CareAction, instruction *models.CareInstruction, log []time.Time) models.Reminder {
	r := models.Reminder{Action: action}

	if instruction == nil || instruction.FrequencyDays == nil {
		r.Severity = models.SeverityUnavailable
		r.Text = textUnavailable
		return r
	}

	if len(log) == 0 {
		r.Severity = models.SeverityFirstTime
		r.Text = fmt.Sprintf("Ready for first %s!", action)
		return r
	}

	days := c.daysUntil(log[len(log)-1], instruction.FrequencyDays.Max)
	r.DaysUntilDue = &days

	switch {
	case days < 0:
		r.Severity = models.SeverityOverdue
		r.Text = fmt.Sprintf("Overdue by %d day(s)", -days)
	case days == 0:
		r.Severity = models.SeverityDueToday
		r.Text = textDueToday
	default:
		r.Severity = models.SeverityUpcoming
		r.Text = fmt.Sprintf("Due in %d day(s)", days)
	}
	return r
}

// daysUntil returns the signed number of days from today until last+interval.
func (c *Calculator) daysUntil(last time.Time, interval int) int {
	today := midnight(c.now().In(c.loc))
	nextDue := last.In(c.loc).AddDate(0, 0, interval)

	if c.mode == ModeLegacy {
		return int(math.Ceil(float64(nextDue.Sub(today)) / float64(24*time.Hour)))
	}

	// Compare dates as UTC midnights so DST transitions never shift the count.
	return int(dateOf(nextDue).Sub(dateOf(today)) / (24 * time.Hour))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
