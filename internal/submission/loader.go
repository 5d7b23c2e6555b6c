package submission

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subsync/internal/dnssync"
)

// Rejection is the per-file outcome for a submission that did not survive
// loading or validation.
type Rejection struct {
	File      string `json:"file" yaml:"file"`
	Subdomain string `json:"subdomain" yaml:"subdomain"`
	Err       error  `json:"-" yaml:"-"`
	Detail    string `json:"detail" yaml:"detail"`
}

// LoadDir reads every <subdomain>.json file in dir and validates it with v.
// Per-file failures become rejections and never abort the scan; the returned
// error covers only an unreadable directory. Files are visited in name order.
func LoadDir(dir string, v *Validator) ([]dnssync.DesiredRecord, []Rejection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read submissions directory %s: %w", dir, err)
	}

	var accepted []dnssync.DesiredRecord
	var rejected []Rejection
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		label := strings.TrimSuffix(name, ".json")
		path := filepath.Join(dir, name)

		data, err := os.ReadFile(path)
		if err != nil {
			rejected = append(rejected, newRejection(name, label, fmt.Errorf("read file: %w", err)))
			continue
		}

		raw, err := ParseSubmission(data)
		if err != nil {
			rejected = append(rejected, newRejection(name, label,
				reject(label, ReasonInvalidFormat, err.Error())))
			continue
		}

		record, err := v.Validate(label, raw)
		if err != nil {
			rejected = append(rejected, newRejection(name, label, err))
			continue
		}
		accepted = append(accepted, record)
	}
	return accepted, rejected, nil
}

func newRejection(file, label string, err error) Rejection {
	return Rejection{File: file, Subdomain: label, Err: err, Detail: err.Error()}
}
