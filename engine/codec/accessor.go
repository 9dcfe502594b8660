// Package codec decodes typed attribute and index arrays from fetched binary
// payloads, using accessor metadata from the document. Decoding always copies —
// the cached payload bytes are never mutated — and every read is bounds-checked
// against both the buffer view's declared length and the payload actually
// fetched.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/strata3d/strata/engine/document"
)

// PayloadSet maps buffer URIs to fetched byte payloads.
type PayloadSet map[string][]byte

// DecodeError reports an accessor whose declared layout cannot be satisfied by
// the bytes actually available. The offending attribute or node is skipped;
// decode errors never corrupt cached payloads.
type DecodeError struct {
	Accessor int
	Reason   string
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("accessor %d: %s", e.Accessor, e.Reason)
}

// AccessorBytes extracts the tightly packed element bytes for an accessor from
// the fetched payloads. Element byte offset = accessor byte offset + buffer-view
// byte offset + index * stride, where stride defaults to the element size and
// may be widened by the buffer view for interleaved data.
//
// Parameters:
//   - doc: the parsed document
//   - payloads: fetched payloads keyed by buffer URI
//   - accessorIndex: the accessor to read
//
// Returns:
//   - []byte: a fresh, tightly packed copy of the element data
//   - error: ReferenceError for bad indices, DecodeError for short payloads
func AccessorBytes(doc *document.Document, payloads PayloadSet, accessorIndex int) ([]byte, error) {
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, document.ErrReference("accessor", accessorIndex, len(doc.Accessors))
	}
	acc := &doc.Accessors[accessorIndex]

	if acc.BufferView == nil {
		return nil, DecodeError{Accessor: accessorIndex, Reason: "no bufferView"}
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, document.ErrReference("bufferView", *acc.BufferView, len(doc.BufferViews))
	}
	bv := &doc.BufferViews[*acc.BufferView]

	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, document.ErrReference("buffer", bv.Buffer, len(doc.Buffers))
	}
	buf := &doc.Buffers[bv.Buffer]

	data, ok := payloads[buf.URI]
	if !ok {
		return nil, DecodeError{Accessor: accessorIndex, Reason: fmt.Sprintf("payload %q not fetched", buf.URI)}
	}

	componentSize := document.ComponentTypeSize(acc.ComponentType)
	componentCount := document.AccessorTypeComponentCount(acc.Type)
	if componentSize == 0 || componentCount == 0 {
		return nil, DecodeError{
			Accessor: accessorIndex,
			Reason:   fmt.Sprintf("unsupported layout type=%s componentType=%d", acc.Type, acc.ComponentType),
		}
	}
	elementSize := componentSize * componentCount

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	base := bv.ByteOffset + acc.ByteOffset
	if acc.Count <= 0 {
		return nil, DecodeError{Accessor: accessorIndex, Reason: fmt.Sprintf("invalid element count %d", acc.Count)}
	}

	// The element range must fit inside the view as declared. Without this an
	// accessor that overruns its view but stays inside the payload would read a
	// neighboring view's bytes.
	viewEnd := acc.ByteOffset + (acc.Count-1)*stride + elementSize
	if acc.ByteOffset < 0 || viewEnd > bv.ByteLength {
		return nil, DecodeError{
			Accessor: accessorIndex,
			Reason:   fmt.Sprintf("needs bytes [%d, %d) of bufferView %d but it declares only %d", acc.ByteOffset, viewEnd, *acc.BufferView, bv.ByteLength),
		}
	}

	// The final element ends at base + (count-1)*stride + elementSize. Check the
	// whole range up front so a short payload is a clean error, not a panic.
	last := base + (acc.Count-1)*stride + elementSize
	if base < 0 || last > len(data) {
		return nil, DecodeError{
			Accessor: accessorIndex,
			Reason:   fmt.Sprintf("needs bytes [%d, %d) but payload %q has %d", base, last, buf.URI, len(data)),
		}
	}
	if bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, DecodeError{
			Accessor: accessorIndex,
			Reason:   fmt.Sprintf("bufferView declares %d bytes at offset %d but payload has %d", bv.ByteLength, bv.ByteOffset, len(data)),
		}
	}

	result := make([]byte, acc.Count*elementSize)
	for i := 0; i < acc.Count; i++ {
		src := base + i*stride
		dst := i * elementSize
		copy(result[dst:dst+elementSize], data[src:src+elementSize])
	}

	return result, nil
}

// ReadVec3 reads an accessor as VEC3 float data (little-endian).
//
// Parameters:
//   - doc: the parsed document
//   - payloads: fetched payloads keyed by buffer URI
//   - accessorIndex: the accessor to read
//
// Returns:
//   - [][3]float32: the decoded vectors
//   - error: error if the accessor layout or payload is unusable
func ReadVec3(doc *document.Document, payloads PayloadSet, accessorIndex int) ([][3]float32, error) {
	acc, err := floatAccessor(doc, accessorIndex, document.AccessorTypeVec3)
	if err != nil {
		return nil, err
	}

	data, err := AccessorBytes(doc, payloads, accessorIndex)
	if err != nil {
		return nil, err
	}

	result := make([][3]float32, acc.Count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &result); err != nil {
		return nil, DecodeError{Accessor: accessorIndex, Reason: err.Error()}
	}
	return result, nil
}

// ReadVec2 reads an accessor as VEC2 float data (little-endian).
//
// Parameters:
//   - doc: the parsed document
//   - payloads: fetched payloads keyed by buffer URI
//   - accessorIndex: the accessor to read
//
// Returns:
//   - [][2]float32: the decoded vectors
//   - error: error if the accessor layout or payload is unusable
func ReadVec2(doc *document.Document, payloads PayloadSet, accessorIndex int) ([][2]float32, error) {
	acc, err := floatAccessor(doc, accessorIndex, document.AccessorTypeVec2)
	if err != nil {
		return nil, err
	}

	data, err := AccessorBytes(doc, payloads, accessorIndex)
	if err != nil {
		return nil, err
	}

	result := make([][2]float32, acc.Count)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &result); err != nil {
		return nil, DecodeError{Accessor: accessorIndex, Reason: err.Error()}
	}
	return result, nil
}

// ReadTexCoords reads a VEC2 texture-coordinate accessor and flips the
// vertical axis (v' = 1 - v) to reconcile the source format's top-left origin
// with the renderer's bottom-left convention.
//
// Parameters:
//   - doc: the parsed document
//   - payloads: fetched payloads keyed by buffer URI
//   - accessorIndex: the accessor to read
//
// Returns:
//   - [][2]float32: the decoded, v-flipped texture coordinates
//   - error: error if the accessor layout or payload is unusable
func ReadTexCoords(doc *document.Document, payloads PayloadSet, accessorIndex int) ([][2]float32, error) {
	uvs, err := ReadVec2(doc, payloads, accessorIndex)
	if err != nil {
		return nil, err
	}
	for i := range uvs {
		uvs[i][1] = 1 - uvs[i][1]
	}
	return uvs, nil
}

// ReadIndices reads a SCALAR index accessor, widening to uint32. Supported
// component encodings are unsigned 16-bit and unsigned 32-bit, both
// little-endian.
//
// Parameters:
//   - doc: the parsed document
//   - payloads: fetched payloads keyed by buffer URI
//   - accessorIndex: the accessor to read
//
// Returns:
//   - []uint32: the widened index data
//   - error: error if the accessor layout or payload is unusable
func ReadIndices(doc *document.Document, payloads PayloadSet, accessorIndex int) ([]uint32, error) {
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, document.ErrReference("accessor", accessorIndex, len(doc.Accessors))
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Type != document.AccessorTypeScalar {
		return nil, DecodeError{Accessor: accessorIndex, Reason: fmt.Sprintf("index accessor is not SCALAR: %s", acc.Type)}
	}

	data, err := AccessorBytes(doc, payloads, accessorIndex)
	if err != nil {
		return nil, err
	}

	result := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case document.ComponentTypeUnsignedShort:
		for i := 0; i < acc.Count; i++ {
			result[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case document.ComponentTypeUnsignedInt:
		for i := 0; i < acc.Count; i++ {
			result[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
	default:
		return nil, DecodeError{
			Accessor: accessorIndex,
			Reason:   fmt.Sprintf("unsupported index component type: %d", acc.ComponentType),
		}
	}

	return result, nil
}

// floatAccessor validates that an accessor is FLOAT with the expected element
// type and returns it.
func floatAccessor(doc *document.Document, accessorIndex int, wantType string) (*document.Accessor, error) {
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, document.ErrReference("accessor", accessorIndex, len(doc.Accessors))
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.Type != wantType || acc.ComponentType != document.ComponentTypeFloat {
		return nil, DecodeError{
			Accessor: accessorIndex,
			Reason:   fmt.Sprintf("accessor is not %s FLOAT: type=%s componentType=%d", wantType, acc.Type, acc.ComponentType),
		}
	}
	return acc, nil
}
