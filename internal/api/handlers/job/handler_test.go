package job

import "testing"

func TestParseRawOptions(t *testing.T) {
	got, err := parseRawOptions(`{"width": 800, "format": "webp", "maintain_aspect": false, "note": null}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"width":           "800",
		"format":          "webp",
		"maintain_aspect": "false",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d options, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("option %q = %q, want %q", k, got[k], v)
		}
	}
}

func TestParseRawOptionsEmpty(t *testing.T) {
	got, err := parseRawOptions("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty payload produced options: %v", got)
	}
}

func TestParseRawOptionsRejectsNested(t *testing.T) {
	if _, err := parseRawOptions(`{"crop": {"x": 1}}`); err == nil {
		t.Error("nested objects should be rejected")
	}
}

func TestParseRawOptionsMalformed(t *testing.T) {
	if _, err := parseRawOptions("{not json"); err == nil {
		t.Error("malformed payload should be rejected")
	}
}
