// Package frame implements the partitioned-frame model: opening a
// directory of sorted shard files plus a manifest, and exposing
// shard-indexed, column-projected record access.
package frame

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/grailbio/datawelder/dwerr"
)

// ManifestName is the filename of a partitioned frame's manifest
// within its destination directory.
const ManifestName = "datawelder.yaml"

// CurrentConfigFormat is the only manifest version this module
// understands. Reading rejects any other value.
const CurrentConfigFormat = 1

// Manifest is the small textual document that lets a reader reopen a
// partitioned frame: field names, key index, shard count, the shard
// filename template, the manifest's own format version, and
// optionally the source path it was partitioned from.
type Manifest struct {
	ConfigFormat    int      `yaml:"config_format"`
	FieldNames      []string `yaml:"field_names"`
	KeyIndex        int      `yaml:"key_index"`
	NumPartitions   int      `yaml:"num_partitions"`
	PartitionFormat string   `yaml:"partition_format"`
	SourcePath      string   `yaml:"source_path,omitempty"`
}

// ShardPath returns the path to shard i under dir according to m's
// partition-filename template.
func (m Manifest) ShardPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf(m.PartitionFormat, i))
}

// WriteManifest serializes m as YAML to dir/ManifestName. Called last
// in a partitioning run so that readers never observe a manifest
// without all shards already written.
func WriteManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "frame: marshal manifest")
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "frame: write manifest")
	}
	return nil
}

// ReadManifest loads and validates dir's manifest.
func ReadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errors.Wrap(err, "frame: read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.Wrapf(dwerr.ErrInvalidManifest, "unmarshal: %v", err)
	}
	if m.ConfigFormat != CurrentConfigFormat {
		return Manifest{}, errors.Wrapf(dwerr.ErrInvalidManifest, "unsupported config_format %d", m.ConfigFormat)
	}
	if len(m.FieldNames) == 0 {
		return Manifest{}, errors.Wrapf(dwerr.ErrInvalidManifest, "missing field_names")
	}
	if m.KeyIndex < 0 || m.KeyIndex >= len(m.FieldNames) {
		return Manifest{}, errors.Wrapf(dwerr.ErrInvalidManifest, "key_index %d out of range for %d fields", m.KeyIndex, len(m.FieldNames))
	}
	if m.NumPartitions <= 0 {
		return Manifest{}, errors.Wrapf(dwerr.ErrInvalidManifest, "num_partitions must be positive, got %d", m.NumPartitions)
	}
	if m.PartitionFormat == "" {
		return Manifest{}, errors.Wrapf(dwerr.ErrInvalidManifest, "missing partition_format")
	}
	return m, nil
}
