package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/jsonutil"
)

// ============================================================================
// Canonical Topics
// ============================================================================

// Topics requested for every generated care guide, in display order.
const (
	TopicSunlight    = "Sunlight"
	TopicWatering    = "Watering"
	TopicSoil        = "Soil"
	TopicTemperature = "Temperature"
	TopicHumidity    = "Humidity"
	TopicFertilizing = "Fertilizing"
)

// CanonicalTopics is the fixed topic set a care guide is asked to cover.
var CanonicalTopics = []string{
	TopicSunlight,
	TopicWatering,
	TopicSoil,
	TopicTemperature,
	TopicHumidity,
	TopicFertilizing,
}

// ============================================================================
// Frequency Range
// ============================================================================

// FrequencyRange is an inclusive range of days between recurring care actions.
type FrequencyRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate checks 0 < Min <= Max.
func (f FrequencyRange) Validate() error {
	if f.Min <= 0 || f.Max <= 0 {
		return fmt.Errorf("frequency days must be positive (min=%d, max=%d)", f.Min, f.Max)
	}
	if f.Min > f.Max {
		return fmt.Errorf("frequency min %d exceeds max %d", f.Min, f.Max)
	}
	return nil
}

// UnmarshalJSON accepts numbers, numeric strings, and whole floats for min/max.
func (f *FrequencyRange) UnmarshalJSON(data []byte) error {
	var raw struct {
		Min json.RawMessage `json:"min"`
		Max json.RawMessage `json:"max"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	minVal, minOK, err := jsonutil.FlexibleIntValue(raw.Min)
	if err != nil {
		return fmt.Errorf("frequency min: %w", err)
	}
	maxVal, maxOK, err := jsonutil.FlexibleIntValue(raw.Max)
	if err != nil {
		return fmt.Errorf("frequency max: %w", err)
	}

	// A single bound means a fixed interval.
	switch {
	case minOK && !maxOK:
		maxVal = minVal
	case maxOK && !minOK:
		minVal = maxVal
	}

	f.Min = minVal
	f.Max = maxVal
	return nil
}

// ============================================================================
// Care Instruction
// ============================================================================

// CareInstruction is one topic of a care guide. FrequencyDays is set only for
// recurring actions such as watering and fertilizing.
type CareInstruction struct {
	Topic         string          `json:"topic"`
	Details       string          `json:"details"`
	FrequencyDays *FrequencyRange `json:"frequencyDays,omitempty"`
}

// UnmarshalJSON treats a null or absent frequencyDays as no schedule.
func (c *CareInstruction) UnmarshalJSON(data []byte) error {
	var raw struct {
		Topic         string          `json:"topic"`
		Details       string          `json:"details"`
		FrequencyDays json.RawMessage `json:"frequencyDays"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Topic = raw.Topic
	c.Details = raw.Details
	c.FrequencyDays = nil

	if freq := bytes.TrimSpace(raw.FrequencyDays); len(freq) > 0 && !bytes.Equal(freq, []byte("null")) {
		var f FrequencyRange
		if err := f.UnmarshalJSON(freq); err != nil {
			return fmt.Errorf("frequencyDays: %w", err)
		}
		c.FrequencyDays = &f
	}
	return nil
}

// ============================================================================
// Plant Care Guide
// ============================================================================

// PlantCareGuide is the structured guide returned for an identified plant.
type PlantCareGuide struct {
	PlantName    string            `json:"plantName"`
	Summary      string            `json:"summary"`
	Instructions []CareInstruction `json:"instructions"`
}

// Validate checks the guide against the schema. All problems are reported
// together, wrapped in apperrors.ErrInvalidGuide.
func (g *PlantCareGuide) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: guide is missing", apperrors.ErrInvalidGuide)
	}

	var problems []error
	if strings.TrimSpace(g.PlantName) == "" {
		problems = append(problems, errors.New("plantName is required"))
	}
	if strings.TrimSpace(g.Summary) == "" {
		problems = append(problems, errors.New("summary is required"))
	}
	if len(g.Instructions) == 0 {
		problems = append(problems, errors.New("instructions are required"))
	}

	seen := make(map[string]bool, len(g.Instructions))
	for i, inst := range g.Instructions {
		key := normalizeTopic(inst.Topic)
		if key == "" {
			problems = append(problems, fmt.Errorf("instructions[%d]: topic is required", i))
			continue
		}
		if seen[key] {
			problems = append(problems, fmt.Errorf("instructions[%d]: duplicate topic %q", i, inst.Topic))
		}
		seen[key] = true

		if inst.FrequencyDays != nil {
			if err := inst.FrequencyDays.Validate(); err != nil {
				problems = append(problems, fmt.Errorf("instructions[%d] (%s): %w", i, inst.Topic, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidGuide, errors.Join(problems...))
	}
	return nil
}

// MissingTopics returns the canonical topics not covered by the guide.
func (g *PlantCareGuide) MissingTopics() []string {
	present := make(map[string]bool, len(g.Instructions))
	for _, inst := range g.Instructions {
		present[normalizeTopic(inst.Topic)] = true
	}

	var missing []string
	for _, topic := range CanonicalTopics {
		if !present[normalizeTopic(topic)] {
			missing = append(missing, topic)
		}
	}
	return missing
}

// CloneInstructions returns a deep copy, so stored plants never share
// frequency ranges with a guide that is later regenerated.
func CloneInstructions(in []CareInstruction) []CareInstruction {
	if in == nil {
		return nil
	}
	out := make([]CareInstruction, len(in))
	for i, inst := range in {
		out[i] = inst
		if inst.FrequencyDays != nil {
			freq := *inst.FrequencyDays
			out[i].FrequencyDays = &freq
		}
	}
	return out
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
