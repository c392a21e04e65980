package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/greenthumb-app/greenthumb/pkg/jsonutil"
)

// Confidence is the model's qualitative certainty in a diagnosis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ValidConfidences contains all valid confidence values.
var ValidConfidences = []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// ParseConfidence parses a confidence level case-insensitively.
func ParseConfidence(s string) (Confidence, error) {
	for _, c := range ValidConfidences {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid confidence %q (want High, Medium or Low)", s)
}

// UnmarshalJSON normalizes casing and rejects values outside the enum.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	parsed, err := ParseConfidence(jsonutil.FlexibleStringValue(json.RawMessage(data)))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Treatment lists remedy steps in order.
type Treatment struct {
	Organic  []string `json:"organic"`
	Chemical []string `json:"chemical"`
}

// Diagnosis is one suspected problem seen in a plant photo.
type Diagnosis struct {
	Issue       string     `json:"issue"`
	Description string     `json:"description"`
	Confidence  Confidence `json:"confidence"`
	Treatment   Treatment  `json:"treatment"`
}

// Validate checks required fields.
func (d *Diagnosis) Validate() error {
	if strings.TrimSpace(d.Issue) == "" {
		return fmt.Errorf("issue is required")
	}
	if _, err := ParseConfidence(string(d.Confidence)); err != nil {
		return err
	}
	return nil
}

// DiagnosisReport is the result of a diagnosis request. Zero diagnoses means
// no issues were detected, which is a successful outcome.
type DiagnosisReport struct {
	Diagnoses []Diagnosis `json:"diagnoses"`
}

// Healthy reports whether no issues were detected.
func (r *DiagnosisReport) Healthy() bool {
	return len(r.Diagnoses) == 0
}

// MarshalJSON always emits diagnoses as an array and adds the healthy flag.
func (r DiagnosisReport) MarshalJSON() ([]byte, error) {
	diagnoses := r.Diagnoses
	if diagnoses == nil {
		diagnoses = []Diagnosis{}
	}
	return json.Marshal(struct {
		Diagnoses []Diagnosis `json:"diagnoses"`
		Healthy   bool        `json:"healthy"`
	}{diagnoses, len(diagnoses) == 0})
}
