package codec

import (
	"fmt"

	"github.com/strata3d/strata/engine/document"
)

// MeshData is the decoded geometry for a single draw call, ready to hand to
// the renderer collaborator. Normals and TexCoords may be nil when the
// primitive does not declare them.
type MeshData struct {
	Name          string
	Positions     [][3]float32
	Normals       [][3]float32
	TexCoords     [][2]float32
	Indices       []uint32
	MaterialIndex int // -1 when the primitive has no material
}

// ExtractPrimitive decodes the first primitive of a mesh into a MeshData.
// Meshes with more than one primitive stream only their first primitive — a
// deliberate scope limitation of the streaming pipeline.
//
// Parameters:
//   - doc: the parsed document
//   - payloads: fetched payloads keyed by buffer URI
//   - meshIndex: the mesh to extract
//
// Returns:
//   - *MeshData: the decoded geometry
//   - error: ReferenceError for bad indices, DecodeError for bad layouts
func ExtractPrimitive(doc *document.Document, payloads PayloadSet, meshIndex int) (*MeshData, error) {
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, document.ErrReference("mesh", meshIndex, len(doc.Meshes))
	}
	mesh := &doc.Meshes[meshIndex]
	if len(mesh.Primitives) == 0 {
		return nil, DecodeError{Accessor: -1, Reason: fmt.Sprintf("mesh %d has no primitives", meshIndex)}
	}
	prim := &mesh.Primitives[0]

	if prim.Mode != nil && *prim.Mode != document.PrimitiveModeTriangles {
		return nil, DecodeError{Accessor: -1, Reason: fmt.Sprintf("unsupported primitive mode %d (only triangles)", *prim.Mode)}
	}

	posAccessor, ok := prim.Attributes[document.AttributePosition]
	if !ok {
		return nil, DecodeError{Accessor: -1, Reason: "primitive has no POSITION attribute"}
	}

	positions, err := ReadVec3(doc, payloads, posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	result := &MeshData{
		Name:          mesh.Name,
		Positions:     positions,
		MaterialIndex: -1,
	}
	if result.Name == "" {
		result.Name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	if prim.Material != nil {
		result.MaterialIndex = *prim.Material
	}

	if normalAccessor, ok := prim.Attributes[document.AttributeNormal]; ok {
		normals, err := ReadVec3(doc, payloads, normalAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		result.Normals = normals
	}

	if texCoordAccessor, ok := prim.Attributes[document.AttributeTexCoord]; ok {
		texCoords, err := ReadTexCoords(doc, payloads, texCoordAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		result.TexCoords = texCoords
	}

	if prim.Indices != nil {
		indices, err := ReadIndices(doc, payloads, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		result.Indices = indices
	} else {
		// Generate sequential indices if none provided
		indices := make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
		result.Indices = indices
	}

	return result, nil
}
