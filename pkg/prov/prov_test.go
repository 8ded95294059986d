package prov

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSHA256Bytes(t *testing.T) {
	// Known digest of the empty input.
	if got := SHA256Bytes(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("SHA256Bytes(nil) = %s", got)
	}
	if SHA256Bytes([]byte("a")) == SHA256Bytes([]byte("b")) {
		t.Error("different inputs hashed identically")
	}
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.bin")
	if err := os.WriteFile(path, []byte("socket"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File: %v", err)
	}
	if want := SHA256Bytes([]byte("socket")); got != want {
		t.Errorf("SHA256File = %s, want %s", got, want)
	}
	if _, err := SHA256File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("SHA256File accepted a missing file")
	}
}

func TestWriteAndReadBack(t *testing.T) {
	rec := New(
		map[string]interface{}{"limb_sha256": "abc"},
		map[string]interface{}{"wall_mm": 4.0},
		map[string]int{"faces": 1200},
	)
	if rec.SocketlabVersion != Version {
		t.Errorf("version = %s", rec.SocketlabVersion)
	}
	if rec.Timestamp == "" {
		t.Error("timestamp not stamped")
	}

	path := filepath.Join(t.TempDir(), "provenance.json")
	if err := Write(path, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("written provenance is not valid JSON: %v", err)
	}
	if back.SocketlabVersion != Version {
		t.Errorf("round trip version = %s", back.SocketlabVersion)
	}
	if back.Inputs["limb_sha256"] != "abc" {
		t.Errorf("round trip inputs = %v", back.Inputs)
	}
}
