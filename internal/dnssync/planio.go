package dnssync

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncodePlan serializes the plan to either JSON or YAML.
func EncodePlan(plan *Plan, format string, pretty bool) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is nil")
	}
	return encodeDoc(plan, format, pretty)
}

// SavePlan persists a plan in the requested format.
func SavePlan(plan *Plan, path, format string, pretty bool) error {
	if format == "" {
		format = detectFormatFromPath(path)
	}
	content, err := EncodePlan(plan, format, pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}

// EncodeResults serializes a run report to either JSON or YAML.
func EncodeResults(results *Results, format string, pretty bool) ([]byte, error) {
	if results == nil {
		return nil, fmt.Errorf("results are nil")
	}
	return encodeDoc(results, format, pretty)
}

// SaveResults persists a run report in the requested format.
func SaveResults(results *Results, path, format string, pretty bool) error {
	if format == "" {
		format = detectFormatFromPath(path)
	}
	content, err := EncodeResults(results, format, pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}

func encodeDoc(doc any, format string, pretty bool) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(doc)
	default:
		if pretty {
			return json.MarshalIndent(doc, "", "  ")
		}
		return json.Marshal(doc)
	}
}
