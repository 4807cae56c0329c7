package photobak

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ManifestRecord describes one asset placed in the destination.
type ManifestRecord struct {
	FileName string `json:"file_name"`
	Size     string `json:"size"`
}

// Manifest lists every asset placed during a single run.
type Manifest struct {
	ID     Identity         `json:"id"`
	Photos []ManifestRecord `json:"photos"`
}

// ManifestName is the fixed file name of an identity's manifest.
func ManifestName(id Identity) string {
	return id.String() + ".json.txt"
}

// ManifestBuilder accumulates records in processing order.
// A builder is created fresh for each run and never merged with earlier ones.
type ManifestBuilder struct {
	manifest Manifest
}

// NewManifestBuilder creates an empty builder for id.
func NewManifestBuilder(id Identity) *ManifestBuilder {
	return &ManifestBuilder{
		manifest: Manifest{ID: id, Photos: []ManifestRecord{}},
	}
}

// Record appends a record for an asset stored as name with size tag sizeTag.
func (b *ManifestBuilder) Record(name, sizeTag string) {
	b.manifest.Photos = append(b.manifest.Photos, ManifestRecord{FileName: name, Size: sizeTag})
}

// Len returns the number of records so far.
func (b *ManifestBuilder) Len() int {
	return len(b.manifest.Photos)
}

// Manifest returns a copy of the manifest built so far.
func (b *ManifestBuilder) Manifest() Manifest {
	photos := make([]ManifestRecord, len(b.manifest.Photos))
	copy(photos, b.manifest.Photos)
	return Manifest{ID: b.manifest.ID, Photos: photos}
}

// Finalize serializes the manifest as two-space indented JSON.
// Non-ASCII text is written as UTF-8, not escaped.
func (b *ManifestBuilder) Finalize() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b.manifest); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
