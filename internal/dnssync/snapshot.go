package dnssync

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Snapshot captures the live zone state at a point in time, for export and
// pre-apply archival. Snapshots are write-only: they are never read back as a
// reconciliation basis.
type Snapshot struct {
	ZoneID     string       `json:"zone_id" yaml:"zone_id"`
	RootDomain string       `json:"root_domain" yaml:"root_domain"`
	Exported   time.Time    `json:"exported_at" yaml:"exported_at"`
	Records    []LiveRecord `json:"records" yaml:"records"`
}

// NewSnapshot stamps the given live set.
func NewSnapshot(zoneID, rootDomain string, records []LiveRecord) *Snapshot {
	return &Snapshot{
		ZoneID:     zoneID,
		RootDomain: rootDomain,
		Exported:   time.Now().UTC(),
		Records:    records,
	}
}

// Validate performs basic sanity checks before the snapshot is persisted. An
// empty record set is legal: a freshly delegated zone has none.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	if strings.TrimSpace(s.RootDomain) == "" {
		return errors.New("snapshot is missing the root domain")
	}
	if s.Exported.IsZero() {
		s.Exported = time.Now().UTC()
	}
	return nil
}

// EncodeSnapshot serializes the snapshot to JSON or YAML.
func EncodeSnapshot(s *Snapshot, format string, pretty bool) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return encodeDoc(s, format, pretty)
}

// SaveSnapshot writes the snapshot to disk using the requested serialization
// format, inferred from the file extension when empty.
func SaveSnapshot(s *Snapshot, path, format string, pretty bool) error {
	if format == "" {
		format = detectFormatFromPath(path)
	}
	content, err := EncodeSnapshot(s, format, pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o600)
}

func detectFormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
