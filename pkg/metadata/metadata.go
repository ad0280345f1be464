// Package metadata records and checks SHA-256 hashes of pipeline artifacts in
// a small sidecar file written next to each artifact.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// TagStart is the first line of a sidecar.
	TagStart = "METADATA_START"
	// TagEnd is the last line of a sidecar.
	TagEnd = "METADATA_END"
	// SidecarExt is appended to the artifact path.
	SidecarExt = ".meta"
	// Version of the sidecar layout.
	Version = "1"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes one artifact as of the run that wrote it.
type Metadata struct {
	LastModify time.Time
	Version    string
	Hash       string
	Rows       int
	RunID      string
}

// SidecarPath returns where the metadata of path is stored.
func SidecarPath(path string) string {
	return path + SidecarExt
}

// CalculateHash computes the hex SHA-256 of everything read from r.
func CalculateHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile computes the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return CalculateHash(f)
}

// Format renders the sidecar text.
func Format(meta *Metadata) string {
	var b strings.Builder

	b.WriteString(TagStart + "\n")
	fmt.Fprintf(&b, "VERSION: %s\n", meta.Version)
	fmt.Fprintf(&b, "LAST_MODIFY: %s\n", meta.LastModify.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "HASH: %s\n", meta.Hash)
	fmt.Fprintf(&b, "ROWS: %d\n", meta.Rows)

	if meta.RunID != "" {
		fmt.Fprintf(&b, "RUN_ID: %s\n", meta.RunID)
	}

	b.WriteString(TagEnd + "\n")

	return b.String()
}

// Parse reads sidecar text. Unknown keys are ignored.
func Parse(content string) (*Metadata, error) {
	start := strings.Index(content, TagStart)
	end := strings.Index(content, TagEnd)

	if start < 0 || end < start {
		return nil, ErrNoMetadataBlock
	}

	meta := &Metadata{}

	lines := strings.SplitSeq(content[start+len(TagStart):end], "\n")
	for line := range lines {
		parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		switch key {
		case "VERSION":
			meta.Version = val
		case "LAST_MODIFY":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.LastModify = t
			}
		case "HASH":
			meta.Hash = val
		case "ROWS":
			if n, err := strconv.Atoi(val); err == nil {
				meta.Rows = n
			}
		case "RUN_ID":
			meta.RunID = val
		}
	}

	return meta, nil
}

// Sign hashes the artifact at path and writes its sidecar.
func Sign(path string, rows int, runID string) (*Metadata, error) {
	hash, err := HashFile(path)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		LastModify: time.Now().UTC().Truncate(time.Second),
		Version:    Version,
		Hash:       hash,
		Rows:       rows,
		RunID:      runID,
	}

	if err := os.WriteFile(SidecarPath(path), []byte(Format(meta)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata for %s: %w", path, err)
	}

	return meta, nil
}

// Read loads the sidecar of path.
func Read(path string) (*Metadata, error) {
	data, err := os.ReadFile(SidecarPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoMetadataBlock
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for %s: %w", path, err)
	}

	return Parse(string(data))
}

// Verify checks that the artifact at path still matches its sidecar hash.
func Verify(path string) (bool, error) {
	meta, err := Read(path)
	if err != nil {
		return false, err
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated, err := HashFile(path)
	if err != nil {
		return false, err
	}

	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}
