package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// Parse deserializes and validates a scene description from raw JSON bytes.
// Validation covers the fatal structure class only: version, default scene,
// buffer URIs, and intra-document index ranges that would make the document
// unusable as a whole. Per-node breakage (a node referencing a missing mesh)
// is left to the graph builder, which skips such nodes.
//
// Parameters:
//   - data: the raw JSON document
//
// Returns:
//   - *Document: the parsed, immutable document
//   - error: StructureError if the document is malformed
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, StructureError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if err := validate(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// ParseFile reads and parses a scene description from a file path.
//
// Parameters:
//   - path: path to the scene description file
//
// Returns:
//   - *Document: the parsed document
//   - string: the directory containing the file, for resolving relative URIs
//   - error: error if reading or parsing fails
func ParseFile(path string) (*Document, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, "", err
	}

	return doc, filepath.Dir(path), nil
}

// ParseReader parses a scene description from a reader.
//
// Parameters:
//   - r: reader providing the JSON document
//
// Returns:
//   - *Document: the parsed document
//   - error: error if reading or parsing fails
func ParseReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(data)
}

// validate checks the fatal structure invariants of a freshly parsed document.
func validate(doc *Document) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return StructureError{Reason: fmt.Sprintf("unsupported version %q (want 2.x)", doc.Asset.Version)}
	}

	if len(doc.Scenes) == 0 {
		return StructureError{Reason: "document has no scenes"}
	}
	if len(doc.Nodes) == 0 {
		return StructureError{Reason: "document has no nodes"}
	}

	sceneIndex := 0
	if doc.Scene != nil {
		sceneIndex = *doc.Scene
	}
	if sceneIndex < 0 || sceneIndex >= len(doc.Scenes) {
		return StructureError{Reason: fmt.Sprintf("default scene index %d out of range", sceneIndex)}
	}

	for _, root := range doc.Scenes[sceneIndex].Nodes {
		if root < 0 || root >= len(doc.Nodes) {
			return StructureError{Reason: fmt.Sprintf("scene root node index %d out of range", root)}
		}
	}

	// Buffer views must point at real buffers, and buffers must be external.
	// Inline (data: URI) payloads are not supported: the streaming model fetches
	// every payload by identifier through the Fetcher capability.
	for i := range doc.Buffers {
		uri := doc.Buffers[i].URI
		if uri == "" {
			return StructureError{Reason: fmt.Sprintf("buffer %d has no URI (embedded payloads unsupported)", i)}
		}
		if strings.HasPrefix(uri, "data:") {
			return StructureError{Reason: fmt.Sprintf("buffer %d uses an inline data URI (unsupported)", i)}
		}
	}
	for i := range doc.BufferViews {
		bv := &doc.BufferViews[i]
		if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
			return StructureError{Reason: fmt.Sprintf("bufferView %d references buffer %d of %d", i, bv.Buffer, len(doc.Buffers))}
		}
	}

	return nil
}

// DefaultScene returns the default scene of the document. The index is
// validated at parse time.
//
// Returns:
//   - *Scene: the default scene
func (d *Document) DefaultScene() *Scene {
	index := 0
	if d.Scene != nil {
		index = *d.Scene
	}
	return &d.Scenes[index]
}
