// Package snapshot loads portfolio exports (entities plus relationships) into
// a memory store, for deployments without a live CRUD database and for the
// offline CLI. Exports are JSON or YAML, optionally snappy-compressed with a
// trailing ".sz".
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Document is one portfolio export.
type Document struct {
	Entities      []*storage.Entity       `json:"entities" yaml:"entities"`
	Relationships []*storage.Relationship `json:"relationships" yaml:"relationships"`
}

// Format is the serialisation of an export.
type Format struct {
	YAML       bool
	Compressed bool
}

// Source yields a named export. The name selects the format.
type Source interface {
	Fetch(ctx context.Context) (name string, data []byte, err error)
}

// ErrUnknownFormat is returned for names without a known extension.
var ErrUnknownFormat = errors.New("snapshot: unknown format (want .json, .yaml, .yml, optionally + .sz)")

// FormatOf derives the format from a file or object name.
func FormatOf(name string) (Format, error) {
	var f Format
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".sz") {
		f.Compressed = true
		lower = strings.TrimSuffix(lower, ".sz")
	}
	switch filepath.Ext(lower) {
	case ".json":
	case ".yaml", ".yml":
		f.YAML = true
	default:
		return Format{}, ErrUnknownFormat
	}
	return f, nil
}

// Decode parses an export according to the format implied by name.
func Decode(name string, data []byte) (*Document, error) {
	f, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if f.Compressed {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decompress %s: %w", name, err)
		}
	}

	var doc Document
	if f.YAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", name, err)
	}
	return &doc, nil
}

// Encode renders doc in the format implied by name.
func Encode(name string, doc *Document) ([]byte, error) {
	f, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	if f.YAML {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %s: %w", name, err)
	}
	if f.Compressed {
		data = snappy.Encode(nil, data)
	}
	return data, nil
}

// Load fetches an export and atomically replaces the contents of store.
func Load(ctx context.Context, src Source, store *storage.MemoryStore) (*Document, error) {
	name, data, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(name, data)
	if err != nil {
		return nil, err
	}
	if err := store.Load(doc.Entities, doc.Relationships); err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", name, err)
	}
	return doc, nil
}

// NewSource picks the export source: a local file when path is set, else
// the S3 object when a bucket is configured. It returns nil when neither is.
func NewSource(ctx context.Context, path string, s3cfg S3Config) (Source, error) {
	switch {
	case path != "" && s3cfg.Bucket != "":
		return nil, errors.New("snapshot: file and s3 sources are mutually exclusive")
	case path != "":
		if _, err := FormatOf(path); err != nil {
			return nil, err
		}
		return FileSource{Path: path}, nil
	case s3cfg.Bucket != "":
		if _, err := FormatOf(s3cfg.Key); err != nil {
			return nil, err
		}
		return NewS3Source(ctx, s3cfg)
	}
	return nil, nil
}

// FileSource reads an export from the local filesystem.
type FileSource struct {
	Path string
}

// Fetch reads the file.
func (s FileSource) Fetch(ctx context.Context) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: read %s: %w", s.Path, err)
	}
	return s.Path, data, nil
}

// WriteFile encodes doc to path, choosing the format from its name.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(path, doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
