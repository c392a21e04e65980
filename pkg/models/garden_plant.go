package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// Care Actions
// ============================================================================

// CareAction is a recurring care event that is logged and reminded about.
type CareAction string

const (
	CareActionWatering    CareAction = "watering"
	CareActionFertilizing CareAction = "fertilizing"
)

// CareActions lists the actions in display order.
var CareActions = []CareAction{CareActionWatering, CareActionFertilizing}

// ParseCareAction parses an action name case-insensitively.
func ParseCareAction(s string) (CareAction, error) {
	switch CareAction(strings.ToLower(strings.TrimSpace(s))) {
	case CareActionWatering:
		return CareActionWatering, nil
	case CareActionFertilizing:
		return CareActionFertilizing, nil
	default:
		return "", fmt.Errorf("unknown care action %q", s)
	}
}

// Keyword is matched against instruction topics to find the action's schedule.
func (a CareAction) Keyword() string {
	return string(a)
}

// ============================================================================
// Garden Plant
// ============================================================================

// GardenPlant is a plant the user adopted into their garden. CareInstructions
// is a snapshot taken at adoption time. Logs are append-only, oldest first.
type GardenPlant struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Image            string            `json:"image"`
	Summary          string            `json:"summary"`
	CareInstructions []CareInstruction `json:"careInstructions"`
	WateringLog      []time.Time       `json:"wateringLog"`
	FertilizingLog   []time.Time       `json:"fertilizingLog"`
	Notes            string            `json:"notes"`
}

// Log returns the event log for an action.
func (p *GardenPlant) Log(action CareAction) []time.Time {
	switch action {
	case CareActionWatering:
		return p.WateringLog
	case CareActionFertilizing:
		return p.FertilizingLog
	default:
		return nil
	}
}

// LastEvent returns the most recent log entry for an action.
func (p *GardenPlant) LastEvent(action CareAction) (time.Time, bool) {
	log := p.Log(action)
	if len(log) == 0 {
		return time.Time{}, false
	}
	return log[len(log)-1], true
}

// AppendEvent appends a care event. Entries earlier than the latest one are
// rejected so the log stays chronological.
func (p *GardenPlant) AppendEvent(action CareAction, at time.Time) error {
	if last, ok := p.LastEvent(action); ok && at.Before(last) {
		return fmt.Errorf("%s event at %s precedes last entry %s",
			action, at.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	switch action {
	case CareActionWatering:
		p.WateringLog = append(p.WateringLog, at)
	case CareActionFertilizing:
		p.FertilizingLog = append(p.FertilizingLog, at)
	default:
		return fmt.Errorf("unknown care action %q", action)
	}
	return nil
}

// Instruction returns the first instruction whose topic mentions the action.
func (p *GardenPlant) Instruction(action CareAction) (*CareInstruction, bool) {
	keyword := action.Keyword()
	for i := range p.CareInstructions {
		if strings.Contains(strings.ToLower(p.CareInstructions[i].Topic), keyword) {
			return &p.CareInstructions[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the plant.
func (p *GardenPlant) Clone() *GardenPlant {
	if p == nil {
		return nil
	}
	c := *p
	c.CareInstructions = CloneInstructions(p.CareInstructions)
	c.WateringLog = slices.Clone(p.WateringLog)
	c.FertilizingLog = slices.Clone(p.FertilizingLog)
	return &c
}

// MarshalJSON writes absent lists as [] so stored records always carry every field.
func (p GardenPlant) MarshalJSON() ([]byte, error) {
	type plain GardenPlant
	out := plain(p)
	if out.CareInstructions == nil {
		out.CareInstructions = []CareInstruction{}
	}
	if out.WateringLog == nil {
		out.WateringLog = []time.Time{}
	}
	if out.FertilizingLog == nil {
		out.FertilizingLog = []time.Time{}
	}
	return json.Marshal(out)
}

// ============================================================================
// Images
// ============================================================================

// NewImageDataURL embeds image bytes in a data URL so the stored record does
// not depend on the upload that produced it.
func NewImageDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsImageDataURL reports whether s is a base64 image data URL.
func IsImageDataURL(s string) bool {
	if !strings.HasPrefix(s, "data:image/") {
		return false
	}
	header, _, ok := strings.Cut(s, ",")
	return ok && strings.HasSuffix(header, ";base64")
}

// ============================================================================
// Ids
// ============================================================================

// IDGenerator hands out plant ids derived from the creation time in
// milliseconds, strictly increasing within the process.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator creates a generator. A nil clock uses time.Now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Seed makes sure future ids are greater than id.
func (g *IDGenerator) Seed(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}

// Next returns the next id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
