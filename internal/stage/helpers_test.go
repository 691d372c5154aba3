package stage

import (
	"testing"
)

type sampleArtifact struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDecodeArtifact_Valid(t *testing.T) {
	var got sampleArtifact
	if err := DecodeArtifact(`{"name":"cctv","count":3}`, "snapshot", &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "cctv" || got.Count != 3 {
		t.Fatalf("unexpected artifact: %+v", got)
	}
}

func TestDecodeArtifact_Empty(t *testing.T) {
	var got sampleArtifact
	if err := DecodeArtifact("", "snapshot", &got); err == nil {
		t.Fatal("expected error for empty artifact")
	}
}

func TestDecodeArtifact_Invalid(t *testing.T) {
	var got sampleArtifact
	if err := DecodeArtifact("{invalid json", "snapshot", &got); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestEncodeArtifactRoundTrip(t *testing.T) {
	raw, err := EncodeArtifact("snapshot", sampleArtifact{Name: "cctv", Count: 2})
	if err != nil {
		t.Fatalf("EncodeArtifact: %v", err)
	}
	var got sampleArtifact
	if err := DecodeArtifact(raw, "snapshot", &got); err != nil {
		t.Fatalf("DecodeArtifact: %v", err)
	}
	if got.Name != "cctv" || got.Count != 2 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}
