package models

// Severity is the due-state of a recurring care action.
type Severity string

const (
	SeverityUnavailable Severity = "unavailable"
	SeverityFirstTime   Severity = "first-time"
	SeverityOverdue     Severity = "overdue"
	SeverityDueToday    Severity = "due-today"
	SeverityUpcoming    Severity = "upcoming"
)

// Reminder is the computed reminder for one care action of one plant.
// DaysUntilDue is nil when no due date can be computed; negative when overdue.
type Reminder struct {
	Action       CareAction `json:"action"`
	Severity     Severity   `json:"severity"`
	Text         string     `json:"text"`
	DaysUntilDue *int       `json:"daysUntilDue,omitempty"`
}

// PlantReminders pairs a plant with its reminders in CareActions order.
type PlantReminders struct {
	PlantID   int64      `json:"plantId"`
	PlantName string     `json:"plantName"`
	Reminders []Reminder `json:"reminders"`
}
