package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `{
	"asset": {"version": "2.0"},
	"scene": 0,
	"scenes": [{"name": "main", "nodes": [0]}],
	"nodes": [{"name": "root", "mesh": 0}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
	"bufferViews": [{"buffer": 0, "byteLength": 36}],
	"buffers": [{"uri": "geometry.bin", "byteLength": 36}]
}`

func TestParseMinimalDocument(t *testing.T) {
	doc, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)

	assert.Equal(t, "2.0", doc.Asset.Version)
	require.Len(t, doc.Scenes, 1)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "root", doc.Nodes[0].Name)
	require.NotNil(t, doc.Nodes[0].Mesh)
	assert.Equal(t, 0, *doc.Nodes[0].Mesh)
	assert.Equal(t, "geometry.bin", doc.Buffers[0].URI)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "invalid JSON")
}

func TestParseRejectsWrongVersion(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"version": "2.0"`, `"version": "1.0"`, 1)
	_, err := Parse([]byte(doc))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "unsupported version")
}

func TestParseAcceptsMinorVersions(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"version": "2.0"`, `"version": "2.1"`, 1)
	_, err := Parse([]byte(doc))
	assert.NoError(t, err)
}

func TestParseRejectsMissingScenes(t *testing.T) {
	_, err := Parse([]byte(`{"asset": {"version": "2.0"}, "nodes": [{}]}`))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "no scenes")
}

func TestParseRejectsMissingNodes(t *testing.T) {
	_, err := Parse([]byte(`{"asset": {"version": "2.0"}, "scenes": [{}]}`))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "no nodes")
}

func TestParseRejectsSceneIndexOutOfRange(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"scene": 0`, `"scene": 5`, 1)
	_, err := Parse([]byte(doc))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "default scene index")
}

func TestParseRejectsSceneRootOutOfRange(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"nodes": [0]`, `"nodes": [9]`, 1)
	_, err := Parse([]byte(doc))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "root node index")
}

func TestParseRejectsBufferWithoutURI(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"uri": "geometry.bin", `, "", 1)
	_, err := Parse([]byte(doc))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "no URI")
}

func TestParseRejectsInlineDataURI(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"uri": "geometry.bin"`, `"uri": "data:application/octet-stream;base64,AAAA"`, 1)
	_, err := Parse([]byte(doc))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "data URI")
}

func TestParseRejectsBufferViewOutOfRange(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"bufferViews": [{"buffer": 0, "byteLength": 36}]`,
		`"bufferViews": [{"buffer": 3, "byteLength": 36}]`, 1)
	_, err := Parse([]byte(doc))
	var structErr StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Contains(t, structErr.Reason, "references buffer")
}

func TestParseReader(t *testing.T) {
	doc, err := ParseReader(strings.NewReader(minimalDoc))
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Asset.Version)
}

func TestDefaultSceneWithoutExplicitIndex(t *testing.T) {
	doc := strings.Replace(minimalDoc, `"scene": 0,`, "", 1)
	parsed, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "main", parsed.DefaultScene().Name)
}

func TestReferenceErrorMessage(t *testing.T) {
	err := ErrReference("mesh", 7, 3)
	var refErr ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "mesh", refErr.Kind)
	assert.Equal(t, 7, refErr.Index)
	assert.Contains(t, err.Error(), "mesh")
}

func TestComponentTypeSize(t *testing.T) {
	assert.Equal(t, 1, ComponentTypeSize(ComponentTypeUnsignedByte))
	assert.Equal(t, 2, ComponentTypeSize(ComponentTypeUnsignedShort))
	assert.Equal(t, 4, ComponentTypeSize(ComponentTypeUnsignedInt))
	assert.Equal(t, 4, ComponentTypeSize(ComponentTypeFloat))
	assert.Equal(t, 0, ComponentTypeSize(9999))
}

func TestAccessorTypeComponentCount(t *testing.T) {
	assert.Equal(t, 1, AccessorTypeComponentCount(AccessorTypeScalar))
	assert.Equal(t, 2, AccessorTypeComponentCount(AccessorTypeVec2))
	assert.Equal(t, 3, AccessorTypeComponentCount(AccessorTypeVec3))
	assert.Equal(t, 16, AccessorTypeComponentCount(AccessorTypeMat4))
	assert.Equal(t, 0, AccessorTypeComponentCount("TENSOR"))
}
