package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/strata/engine/document"
)

// triangleDoc builds a document with one mesh: a single triangle with
// positions, normals, texcoords, and u16 indices packed into one payload.
func triangleDoc(t *testing.T) (*document.Document, PayloadSet) {
	t.Helper()

	positions := floatBytes(t, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	normals := floatBytes(t, 0, 0, 1, 0, 0, 1, 0, 0, 1)
	uvs := floatBytes(t, 0, 0, 1, 0, 0, 1)
	indices := uint16Bytes(t, 0, 1, 2)

	payload := append(append(append(positions, normals...), uvs...), indices...)

	doc := &document.Document{
		Meshes: []document.Mesh{{
			Name: "triangle",
			Primitives: []document.Primitive{{
				Attributes: map[string]int{
					document.AttributePosition: 0,
					document.AttributeNormal:   1,
					document.AttributeTexCoord: 2,
				},
				Indices:  intPtr(3),
				Material: intPtr(0),
			}},
		}},
		Accessors: []document.Accessor{
			{BufferView: intPtr(0), ComponentType: document.ComponentTypeFloat, Count: 3, Type: document.AccessorTypeVec3},
			{BufferView: intPtr(1), ComponentType: document.ComponentTypeFloat, Count: 3, Type: document.AccessorTypeVec3},
			{BufferView: intPtr(2), ComponentType: document.ComponentTypeFloat, Count: 3, Type: document.AccessorTypeVec2},
			{BufferView: intPtr(3), ComponentType: document.ComponentTypeUnsignedShort, Count: 3, Type: document.AccessorTypeScalar},
		},
		BufferViews: []document.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 36},
			{Buffer: 0, ByteOffset: 72, ByteLength: 24},
			{Buffer: 0, ByteOffset: 96, ByteLength: 6},
		},
		Buffers: []document.Buffer{{URI: "tri.bin", ByteLength: len(payload)}},
	}

	return doc, PayloadSet{"tri.bin": payload}
}

func TestExtractPrimitive(t *testing.T) {
	doc, payloads := triangleDoc(t)

	mesh, err := ExtractPrimitive(doc, payloads, 0)
	require.NoError(t, err)

	assert.Equal(t, "triangle", mesh.Name)
	require.Len(t, mesh.Positions, 3)
	assert.Equal(t, [3]float32{1, 0, 0}, mesh.Positions[1])
	require.Len(t, mesh.Normals, 3)
	assert.Equal(t, [3]float32{0, 0, 1}, mesh.Normals[0])
	require.Len(t, mesh.TexCoords, 3)
	// v is flipped.
	assert.InDelta(t, 1, mesh.TexCoords[0][1], 1e-6)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	assert.Equal(t, 0, mesh.MaterialIndex)
}

func TestExtractPrimitiveGeneratesSequentialIndices(t *testing.T) {
	doc, payloads := triangleDoc(t)
	doc.Meshes[0].Primitives[0].Indices = nil

	mesh, err := ExtractPrimitive(doc, payloads, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
}

func TestExtractPrimitiveWithoutMaterial(t *testing.T) {
	doc, payloads := triangleDoc(t)
	doc.Meshes[0].Primitives[0].Material = nil

	mesh, err := ExtractPrimitive(doc, payloads, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, mesh.MaterialIndex)
}

func TestExtractPrimitiveFirstPrimitiveOnly(t *testing.T) {
	doc, payloads := triangleDoc(t)

	// A second primitive with a broken accessor must not affect extraction.
	doc.Meshes[0].Primitives = append(doc.Meshes[0].Primitives, document.Primitive{
		Attributes: map[string]int{document.AttributePosition: 99},
	})

	mesh, err := ExtractPrimitive(doc, payloads, 0)
	require.NoError(t, err)
	assert.Len(t, mesh.Positions, 3)
}

func TestExtractPrimitiveRejectsNonTriangles(t *testing.T) {
	doc, payloads := triangleDoc(t)
	doc.Meshes[0].Primitives[0].Mode = intPtr(1) // LINES

	_, err := ExtractPrimitive(doc, payloads, 0)
	var decErr DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, decErr.Reason, "unsupported primitive mode")
}

func TestExtractPrimitiveRequiresPosition(t *testing.T) {
	doc, payloads := triangleDoc(t)
	delete(doc.Meshes[0].Primitives[0].Attributes, document.AttributePosition)

	_, err := ExtractPrimitive(doc, payloads, 0)
	var decErr DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, decErr.Reason, "no POSITION")
}

func TestExtractPrimitiveNoPrimitives(t *testing.T) {
	doc, payloads := triangleDoc(t)
	doc.Meshes[0].Primitives = nil

	_, err := ExtractPrimitive(doc, payloads, 0)
	var decErr DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, decErr.Reason, "no primitives")
}

func TestExtractPrimitiveBadMeshIndex(t *testing.T) {
	doc, payloads := triangleDoc(t)

	_, err := ExtractPrimitive(doc, payloads, 9)
	var refErr document.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "mesh", refErr.Kind)
}

func TestExtractPrimitiveUnnamedMeshGetsSyntheticName(t *testing.T) {
	doc, payloads := triangleDoc(t)
	doc.Meshes[0].Name = ""

	mesh, err := ExtractPrimitive(doc, payloads, 0)
	require.NoError(t, err)
	assert.Equal(t, "mesh_0", mesh.Name)
}
