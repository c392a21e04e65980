package jsonutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// the model returns numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == math.Trunc(numVal) {
			return strconv.FormatInt(int64(numVal), 10)
		}
		return strconv.FormatFloat(numVal, 'g', -1, 64)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return strconv.FormatBool(boolVal)
	}

	return string(raw)
}

// FlexibleIntValue converts a json.RawMessage to an int. Models frequently emit
// day counts as "7", 7.0 or " 7 days"; all of those yield 7. The second return
// value is false for null/empty input.
func FlexibleIntValue(raw json.RawMessage) (int, bool, error) {
	if isNull(raw) {
		return 0, false, nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal != math.Trunc(numVal) {
			return 0, true, fmt.Errorf("expected whole number, got %v", numVal)
		}
		return int(numVal), true, nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return 0, true, fmt.Errorf("expected number, got %s", string(raw))
	}

	fields := strings.Fields(strVal)
	if len(fields) == 0 {
		return 0, false, nil
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, true, fmt.Errorf("expected number, got %q", strVal)
	}
	return n, true, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
