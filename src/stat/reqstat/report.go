package reqstat

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the report into the string handed to the push sink.
func (r *Report) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(b), nil
}

// Pretty is the indented form used for log output.
func (r *Report) Pretty() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", *r)
	}
	return string(b)
}

// DecodeReport parses a serialized report, mainly for subscribers and tests.
func DecodeReport(msg string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(msg), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
