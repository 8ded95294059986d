// Package prov records how a socket was produced: input hashes, pipeline
// parameters and run statistics, written as a JSON provenance file next to
// the generated meshes.
package prov

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Version is the provenance schema version stamped into every record.
const Version = "0.1.0"

// Record is one run's provenance.
type Record struct {
	SocketlabVersion string                 `json:"socketlab_version"`
	Timestamp        string                 `json:"timestamp"`
	Inputs           map[string]interface{} `json:"inputs"`
	Params           map[string]interface{} `json:"params"`
	Stats            interface{}            `json:"stats"`
}

// New builds a record stamped with the schema version and the current UTC
// time.
func New(inputs, params map[string]interface{}, stats interface{}) Record {
	return Record{
		SocketlabVersion: Version,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Inputs:           inputs,
		Params:           params,
		Stats:            stats,
	}
}

// Write saves the record as indented JSON.
func Write(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("provenance: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("provenance: %w", err)
	}
	return nil
}

// SHA256File returns the hex SHA-256 digest of a file's contents.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Bytes returns the hex SHA-256 digest of in-memory data.
func SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
