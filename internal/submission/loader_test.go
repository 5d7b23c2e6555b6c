package submission

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func rejectionFor(t *testing.T, rejections []Rejection, file string) Rejection {
	t.Helper()
	for _, r := range rejections {
		if r.File == file {
			return r
		}
	}
	t.Fatalf("no rejection recorded for %s: %+v", file, rejections)
	return Rejection{}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blog.json", `{
  // points at the external blog
  "type": "REDIRECT",
  "url": "https://example.org/blog",
  "owner": {"username": "alice"}
}`)
	writeFile(t, dir, "foo.json", `{"type": "a", "ip": "1.2.3.4"}`)
	writeFile(t, dir, "www.json", `{"type": "A", "ip": "1.2.3.4"}`)
	writeFile(t, dir, "Bad.json", `{"type": "A", "ip": "1.2.3.4"}`)
	writeFile(t, dir, "broken.json", `{"type": `)
	writeFile(t, dir, "shape.json", `{"type": 5}`)
	writeFile(t, dir, "notes.txt", "not a submission")
	writeFile(t, dir, ".hidden.json", `{"type": "A", "ip": "1.2.3.4"}`)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	records, rejections, err := LoadDir(dir, NewValidator(nil))
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 accepted records, got %d: %+v", len(records), records)
	}
	// Files are visited in name order; ASCII uppercase sorts first.
	if records[0].Subdomain != "blog" || records[1].Subdomain != "foo" {
		t.Fatalf("unexpected accepted set: %+v", records)
	}
	if !records[0].IsRedirect() {
		t.Fatalf("blog should be a redirect: %+v", records[0])
	}
	if records[0].Owner != "alice" {
		t.Fatalf("owner lost: %+v", records[0])
	}

	if len(rejections) != 4 {
		t.Fatalf("expected 4 rejections, got %d: %+v", len(rejections), rejections)
	}

	var verr *ValidationError
	if r := rejectionFor(t, rejections, "www.json"); !errors.As(r.Err, &verr) || verr.Reason != ReasonReserved {
		t.Fatalf("www.json should be rejected as reserved: %+v", r)
	}
	if r := rejectionFor(t, rejections, "Bad.json"); !errors.As(r.Err, &verr) || verr.Reason != ReasonInvalidFormat {
		t.Fatalf("Bad.json should be rejected for its label: %+v", r)
	}
	if r := rejectionFor(t, rejections, "broken.json"); !errors.As(r.Err, &verr) || verr.Reason != ReasonInvalidFormat {
		t.Fatalf("broken.json should be rejected as unparseable: %+v", r)
	}
	if r := rejectionFor(t, rejections, "shape.json"); !errors.As(r.Err, &verr) || verr.Reason != ReasonInvalidFormat {
		t.Fatalf("shape.json should be rejected by the schema: %+v", r)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "absent"), NewValidator(nil))
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestLoadDirEmptyDirectory(t *testing.T) {
	records, rejections, err := LoadDir(t.TempDir(), NewValidator(nil))
	if err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}
	if len(records) != 0 || len(rejections) != 0 {
		t.Fatalf("expected nothing from an empty directory, got %d records, %d rejections",
			len(records), len(rejections))
	}
}
