package image

import (
	"encoding/json"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	in := `{
		"schemaVersion": 2,
		"b": {"z": "last", "a": [3, 1, 2]},
		"a": "first"
	}`
	got, err := Canonicalize([]byte(in))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"a":"first","b":{"a":[3,1,2],"z":"last"},"schemaVersion":2}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestComputeDigestIgnoresFormatting(t *testing.T) {
	a := []byte(`{"mediaType":"m","size":1234567890123,"annotations":{"x":"1","a":"2"}}`)
	b := []byte("{\n  \"annotations\": {\"a\": \"2\", \"x\": \"1\"},\n  \"size\": 1234567890123,\n  \"mediaType\": \"m\"\n}")

	da, err := ComputeDigest(a)
	if err != nil {
		t.Fatal(err)
	}
	db, err := ComputeDigest(b)
	if err != nil {
		t.Fatal(err)
	}
	if da != db {
		t.Errorf("digests differ: %s vs %s", da, db)
	}

	again, _ := ComputeDigest(a)
	if again != da {
		t.Error("digest is not deterministic")
	}

	other, err := ComputeDigest([]byte(`{"mediaType":"m","size":1234567890124}`))
	if err != nil {
		t.Fatal(err)
	}
	if other == da {
		t.Error("different documents share a digest")
	}
}

func TestComputeDigestRejectsInvalidJSON(t *testing.T) {
	if _, err := ComputeDigest([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestCanonicalizeEscapesControlCharacters(t *testing.T) {
	in := []byte(`{"annotations":{"org.opencontainers.image.description":"line1\nline2\ttab\u0001"}}`)
	got, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if !json.Valid(got) {
		t.Fatalf("canonical form is not valid JSON: %q", got)
	}
	want := `{"annotations":{"org.opencontainers.image.description":"line1\u000aline2\u0009tab\u0001"}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	var decoded struct {
		Annotations map[string]string `json:"annotations"`
	}
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatal(err)
	}
	if d := decoded.Annotations["org.opencontainers.image.description"]; d != "line1\nline2\ttab\x01" {
		t.Errorf("round trip = %q", d)
	}
}
