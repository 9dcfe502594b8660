// Package document holds the typed, immutable scene description model and its
// parser. The schema is the glTF 2.0 subset relevant to streaming: scene graph,
// meshes, accessors, buffers, and PBR materials. Binary payloads are always
// external — the document records their URIs, it never embeds bytes.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package document

// Document is the root of a parsed scene description.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-gltf
type Document struct {
	// Asset contains metadata about the asset.
	Asset Asset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	// Scenes is an array of scenes.
	Scenes []Scene `json:"scenes,omitempty"`

	// Nodes is an array of nodes (transform hierarchy).
	Nodes []Node `json:"nodes,omitempty"`

	// Meshes is an array of meshes.
	Meshes []Mesh `json:"meshes,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []Accessor `json:"accessors,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []BufferView `json:"bufferViews,omitempty"`

	// Buffers describe external binary payloads by URI.
	Buffers []Buffer `json:"buffers,omitempty"`

	// Materials is an array of materials.
	Materials []Material `json:"materials,omitempty"`

	// Textures is an array of textures.
	Textures []Texture `json:"textures,omitempty"`

	// Images is an array of texture image sources.
	Images []Image `json:"images,omitempty"`

	// Samplers define texture sampling parameters.
	Samplers []Sampler `json:"samplers,omitempty"`
}

// Asset contains metadata about the scene description.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-asset
type Asset struct {
	// Version is the format version (required, must be "2.x").
	Version string `json:"version"`

	// Generator is the tool that generated this asset.
	Generator string `json:"generator,omitempty"`

	// Copyright information.
	Copyright string `json:"copyright,omitempty"`
}

// Scene is a set of root nodes to render.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-scene
type Scene struct {
	// Name is an optional name for this scene.
	Name string `json:"name,omitempty"`

	// Nodes are the indices of root nodes in this scene.
	Nodes []int `json:"nodes,omitempty"`
}

// Node is a node in the transform hierarchy.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-node
type Node struct {
	// Name is an optional name for this node.
	Name string `json:"name,omitempty"`

	// Children are indices of child nodes.
	Children []int `json:"children,omitempty"`

	// Mesh is the index of the mesh attached to this node.
	Mesh *int `json:"mesh,omitempty"`

	// Matrix is a 4x4 transformation matrix (column-major).
	// When present it takes precedence over Translation/Rotation/Scale.
	Matrix *[16]float32 `json:"matrix,omitempty"`

	// Translation is the node's translation (x, y, z).
	Translation *[3]float32 `json:"translation,omitempty"`

	// Rotation is the node's rotation as a quaternion (x, y, z, w).
	Rotation *[4]float32 `json:"rotation,omitempty"`

	// Scale is the node's scale (x, y, z).
	Scale *[3]float32 `json:"scale,omitempty"`
}

// Mesh is a set of primitives to be rendered.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh
type Mesh struct {
	// Name is an optional name for this mesh.
	Name string `json:"name,omitempty"`

	// Primitives defines the geometry to render.
	Primitives []Primitive `json:"primitives"`
}

// Primitive defines geometry for a single draw call.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-mesh-primitive
type Primitive struct {
	// Attributes is a map of attribute semantic to accessor index.
	// Standard attributes: POSITION, NORMAL, TEXCOORD_0.
	Attributes map[string]int `json:"attributes"`

	// Indices is the accessor index for the index buffer.
	Indices *int `json:"indices,omitempty"`

	// Material is the material index.
	Material *int `json:"material,omitempty"`

	// Mode is the primitive topology (4 = TRIANGLES, the only supported mode).
	Mode *int `json:"mode,omitempty"`
}

// PrimitiveModeTriangles is the only primitive topology the streamer consumes.
const PrimitiveModeTriangles = 4

// Attribute semantics recognized by the streamer.
const (
	AttributePosition = "POSITION"
	AttributeNormal   = "NORMAL"
	AttributeTexCoord = "TEXCOORD_0"
)

// Accessor defines how to interpret a typed array inside a buffer view.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-accessor
type Accessor struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// BufferView is the index of the bufferView.
	BufferView *int `json:"bufferView,omitempty"`

	// ByteOffset is the offset within the bufferView.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components.
	// 5121=UNSIGNED_BYTE, 5123=UNSIGNED_SHORT, 5125=UNSIGNED_INT, 5126=FLOAT
	ComponentType int `json:"componentType"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT4).
	Type string `json:"type"`

	// Max is the maximum value of each component, when declared.
	Max []float32 `json:"max,omitempty"`

	// Min is the minimum value of each component, when declared.
	Min []float32 `json:"min,omitempty"`
}

// ComponentType constants
const (
	ComponentTypeByte          = 5120
	ComponentTypeUnsignedByte  = 5121
	ComponentTypeShort         = 5122
	ComponentTypeUnsignedShort = 5123
	ComponentTypeUnsignedInt   = 5125
	ComponentTypeFloat         = 5126
)

// AccessorType constants
const (
	AccessorTypeScalar = "SCALAR"
	AccessorTypeVec2   = "VEC2"
	AccessorTypeVec3   = "VEC3"
	AccessorTypeVec4   = "VEC4"
	AccessorTypeMat4   = "MAT4"
)

// BufferView represents a byte range within a buffer.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-bufferview
type BufferView struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Buffer is the index of the buffer.
	Buffer int `json:"buffer"`

	// ByteOffset is the offset into the buffer.
	ByteOffset int `json:"byteOffset,omitempty"`

	// ByteLength is the length of the bufferView.
	ByteLength int `json:"byteLength"`

	// ByteStride is the stride for interleaved data (optional).
	ByteStride *int `json:"byteStride,omitempty"`
}

// Buffer identifies an external binary payload.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-buffer
type Buffer struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the relative identifier of the payload. Inline data: URIs are
	// not supported — payloads are always fetched externally.
	URI string `json:"uri,omitempty"`

	// ByteLength is the declared length of the payload.
	ByteLength int `json:"byteLength"`
}

// Material defines the surface appearance of a primitive.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material
type Material struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// PBRMetallicRoughness is the PBR metallic-roughness model.
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`

	// NormalTexture is the normal map.
	NormalTexture *NormalTextureInfo `json:"normalTexture,omitempty"`

	// OcclusionTexture is the ambient occlusion map.
	OcclusionTexture *OcclusionTextureInfo `json:"occlusionTexture,omitempty"`

	// EmissiveTexture is the emissive map.
	EmissiveTexture *TextureInfo `json:"emissiveTexture,omitempty"`

	// EmissiveFactor is the emissive color (RGB).
	EmissiveFactor *[3]float32 `json:"emissiveFactor,omitempty"`

	// AlphaMode is the alpha rendering mode: "OPAQUE" (default), "MASK", "BLEND".
	AlphaMode string `json:"alphaMode,omitempty"`

	// AlphaCutoff is the alpha cutoff for MASK mode (default 0.5).
	AlphaCutoff *float32 `json:"alphaCutoff,omitempty"`

	// DoubleSided indicates if the material is double-sided.
	DoubleSided bool `json:"doubleSided,omitempty"`
}

// AlphaMode constants
const (
	AlphaModeOpaque = "OPAQUE"
	AlphaModeMask   = "MASK"
	AlphaModeBlend  = "BLEND"
)

// PBRMetallicRoughness is the metallic-roughness material model.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-pbrmetallicroughness
type PBRMetallicRoughness struct {
	// BaseColorFactor is the base color (RGBA).
	BaseColorFactor *[4]float32 `json:"baseColorFactor,omitempty"`

	// BaseColorTexture is the base color texture.
	BaseColorTexture *TextureInfo `json:"baseColorTexture,omitempty"`

	// MetallicFactor is the metalness (0.0 = dielectric, 1.0 = metal).
	MetallicFactor *float32 `json:"metallicFactor,omitempty"`

	// RoughnessFactor is the roughness (0.0 = smooth, 1.0 = rough).
	RoughnessFactor *float32 `json:"roughnessFactor,omitempty"`

	// MetallicRoughnessTexture contains metallic (B) and roughness (G) channels.
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// TextureInfo references a texture.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-textureinfo
type TextureInfo struct {
	// Index is the texture index.
	Index int `json:"index"`

	// TexCoord is the UV set to use (default 0).
	TexCoord int `json:"texCoord,omitempty"`
}

// NormalTextureInfo references a normal map.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-normaltextureinfo
type NormalTextureInfo struct {
	TextureInfo

	// Scale is the normal scale factor.
	Scale *float32 `json:"scale,omitempty"`
}

// OcclusionTextureInfo references an occlusion map.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-material-occlusiontextureinfo
type OcclusionTextureInfo struct {
	TextureInfo

	// Strength is the occlusion strength.
	Strength *float32 `json:"strength,omitempty"`
}

// Texture combines an image and a sampler.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-texture
type Texture struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// Sampler is the sampler index.
	Sampler *int `json:"sampler,omitempty"`

	// Source is the image index.
	Source *int `json:"source,omitempty"`
}

// Image is a texture image source, referenced by URI.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-image
type Image struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// URI is the relative identifier of the image file.
	URI string `json:"uri,omitempty"`

	// MimeType is the image MIME type, when declared.
	MimeType string `json:"mimeType,omitempty"`
}

// Sampler defines texture sampling parameters.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
type Sampler struct {
	// Name is an optional name.
	Name string `json:"name,omitempty"`

	// MagFilter is the magnification filter (9728=NEAREST, 9729=LINEAR).
	MagFilter *int `json:"magFilter,omitempty"`

	// MinFilter is the minification filter.
	MinFilter *int `json:"minFilter,omitempty"`

	// WrapS is the U wrapping mode.
	WrapS *int `json:"wrapS,omitempty"`

	// WrapT is the V wrapping mode.
	WrapT *int `json:"wrapT,omitempty"`
}

// ComponentTypeSize returns the byte size of a component type, or 0 when the
// component type is unknown.
//
// Parameters:
//   - componentType: the accessor component type constant
//
// Returns:
//   - int: size in bytes of one component
func ComponentTypeSize(componentType int) int {
	switch componentType {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// AccessorTypeComponentCount returns the number of components per element for
// an accessor type, or 0 when the type is unknown.
//
// Parameters:
//   - accessorType: the accessor element type string
//
// Returns:
//   - int: components per element
func AccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case AccessorTypeScalar:
		return 1
	case AccessorTypeVec2:
		return 2
	case AccessorTypeVec3:
		return 3
	case AccessorTypeVec4:
		return 4
	case AccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
