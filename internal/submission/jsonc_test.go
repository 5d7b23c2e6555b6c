package submission

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStripCommentsLineAndBlock(t *testing.T) {
	src := `{
  // who gets the subdomain
  "type": "A", /* inline note */
  "ip": "1.2.3.4"
  /* multi
     line */
}`
	stripped := StripComments([]byte(src))

	var doc map[string]any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		t.Fatalf("stripped output is not valid json: %v\n%s", err, stripped)
	}
	if doc["type"] != "A" || doc["ip"] != "1.2.3.4" {
		t.Fatalf("document contents lost: %v", doc)
	}
}

func TestStripCommentsPreservesStrings(t *testing.T) {
	src := `{"url": "https://example.org//path", "txt": "a /* literal */ note", "quote": "he said \"//hi\""}`
	stripped := StripComments([]byte(src))

	var doc map[string]string
	if err := json.Unmarshal(stripped, &doc); err != nil {
		t.Fatalf("stripped output is not valid json: %v\n%s", err, stripped)
	}
	if doc["url"] != "https://example.org//path" {
		t.Fatalf("slashes inside a string were stripped: %q", doc["url"])
	}
	if doc["txt"] != "a /* literal */ note" {
		t.Fatalf("block marker inside a string was stripped: %q", doc["txt"])
	}
	if doc["quote"] != `he said "//hi"` {
		t.Fatalf("escaped quote handling broken: %q", doc["quote"])
	}
}

func TestStripCommentsKeepsOffsets(t *testing.T) {
	src := "{\n// comment line\n\"type\": \"A\"\n}"
	stripped := StripComments([]byte(src))

	if len(stripped) != len(src) {
		t.Fatalf("length changed: %d != %d", len(stripped), len(src))
	}
	if strings.Count(string(stripped), "\n") != strings.Count(src, "\n") {
		t.Fatal("newlines must survive so error offsets stay meaningful")
	}
}

func TestStripCommentsUnterminatedBlock(t *testing.T) {
	src := `{"type": "A"} /* trailing`
	stripped := StripComments([]byte(src))

	var doc map[string]any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		t.Fatalf("unterminated block comment broke the document: %v\n%s", err, stripped)
	}
}
