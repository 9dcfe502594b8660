// Package material resolves document material indices into renderer-facing
// material descriptions: PBR metallic-roughness factors converted to the
// renderer's smoothness convention, alpha handling, and decoded textures
// pulled through an injected texture loader.
package material

import (
	"context"

	"go.uber.org/zap"

	"github.com/strata3d/strata/engine/document"
	"github.com/strata3d/strata/engine/texture"
)

// AlphaMode selects how a material's alpha channel is rendered.
type AlphaMode int

const (
	// AlphaOpaque ignores the alpha channel entirely.
	AlphaOpaque AlphaMode = iota

	// AlphaBlend enables alpha blending, disables depth write, and places the
	// material in the transparent render ordering.
	AlphaBlend

	// AlphaMask clips fragments below the cutoff value.
	AlphaMask
)

// Resolved is a renderer-facing material description. Entries are immutable
// once created and shared across every node that references the same material
// index.
type Resolved struct {
	Name string

	// BaseColor is the RGBA base color factor (default opaque white).
	BaseColor [4]float32

	// Metallic is the metalness factor (default 1.0).
	Metallic float32

	// Smoothness is the renderer's smoothness convention: 1 - roughness.
	Smoothness float32

	// EmissiveFactor is the RGB emissive color (default black).
	EmissiveFactor [3]float32

	// Emissive is set when the emissive factor is non-zero or an emissive
	// texture is present.
	Emissive bool

	// Alpha is the alpha rendering mode.
	Alpha AlphaMode

	// AlphaCutoff is the clip threshold for AlphaMask (default 0.5).
	AlphaCutoff float32

	// DoubleSided disables back-face culling.
	DoubleSided bool

	// Decoded textures; nil slots fall back to the factors above.
	BaseColorTexture         *texture.Texture
	MetallicRoughnessTexture *texture.Texture
	NormalTexture            *texture.Texture
	OcclusionTexture         *texture.Texture
	EmissiveTexture          *texture.Texture
}

// TextureLoader fetches and decodes the image behind an image URI. The
// normalMap flag selects linear color-space decoding. Implementations are
// expected to cache by (uri, normalMap).
type TextureLoader func(ctx context.Context, uri string, normalMap bool) (*texture.Texture, error)

// resolverImpl is the implementation of the Resolver interface.
type resolverImpl struct {
	doc      *document.Document
	textures TextureLoader
	logger   *zap.Logger
}

// Resolver maps document material indices to Resolved material descriptions.
type Resolver interface {
	// Resolve resolves a material index. An absent or out-of-range index
	// yields the fallback material; a missing or undecodable texture yields a
	// nil slot for that channel. Resolution itself never fails.
	//
	// Parameters:
	//   - ctx: cancellation context for texture fetches
	//   - materialIndex: the material index, or a negative value for "none"
	//
	// Returns:
	//   - *Resolved: the resolved material description
	Resolve(ctx context.Context, materialIndex int) *Resolved
}

var _ Resolver = &resolverImpl{}

// ResolverOption is a functional option for configuring a Resolver.
type ResolverOption func(*resolverImpl)

// WithTextureLoader is an option builder that sets the texture loader used to
// resolve texture references. Without one, every texture slot stays nil.
//
// Parameters:
//   - loader: the texture loader
//
// Returns:
//   - ResolverOption: a function that applies the loader option
func WithTextureLoader(loader TextureLoader) ResolverOption {
	return func(r *resolverImpl) {
		r.textures = loader
	}
}

// WithLogger is an option builder that sets the logger for texture resolution
// failures. Defaults to a no-op logger.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - ResolverOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *resolverImpl) {
		r.logger = logger
	}
}

// NewResolver creates a material resolver for a parsed document.
//
// Parameters:
//   - doc: the parsed document
//   - options: functional options (texture loader, logging)
//
// Returns:
//   - Resolver: the resolver
func NewResolver(doc *document.Document, options ...ResolverOption) Resolver {
	r := &resolverImpl{
		doc:    doc,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Fallback returns the material used when a primitive has no material or its
// index is out of range: opaque white, fully metallic, fully rough.
//
// Returns:
//   - *Resolved: the fallback material description
func Fallback() *Resolved {
	return &Resolved{
		Name:        "fallback",
		BaseColor:   [4]float32{1, 1, 1, 1},
		Metallic:    1.0,
		Smoothness:  0.0,
		Alpha:       AlphaOpaque,
		AlphaCutoff: 0.5,
	}
}

func (r *resolverImpl) Resolve(ctx context.Context, materialIndex int) *Resolved {
	if materialIndex < 0 || materialIndex >= len(r.doc.Materials) {
		return Fallback()
	}
	mat := &r.doc.Materials[materialIndex]

	result := &Resolved{
		Name:        mat.Name,
		BaseColor:   [4]float32{1, 1, 1, 1},
		Metallic:    1.0,
		Smoothness:  0.0,
		Alpha:       AlphaOpaque,
		AlphaCutoff: 0.5,
		DoubleSided: mat.DoubleSided,
	}

	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			result.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			result.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.Smoothness = 1 - *pbr.RoughnessFactor
		}
		result.BaseColorTexture = r.loadSlot(ctx, mat.Name, "base color", pbr.BaseColorTexture, false)
		result.MetallicRoughnessTexture = r.loadSlot(ctx, mat.Name, "metallic-roughness", pbr.MetallicRoughnessTexture, false)
	}

	if mat.NormalTexture != nil {
		result.NormalTexture = r.loadSlot(ctx, mat.Name, "normal", &mat.NormalTexture.TextureInfo, true)
	}
	if mat.OcclusionTexture != nil {
		result.OcclusionTexture = r.loadSlot(ctx, mat.Name, "occlusion", &mat.OcclusionTexture.TextureInfo, false)
	}

	if mat.EmissiveFactor != nil {
		result.EmissiveFactor = *mat.EmissiveFactor
	}
	result.EmissiveTexture = r.loadSlot(ctx, mat.Name, "emissive", mat.EmissiveTexture, false)
	f := result.EmissiveFactor
	result.Emissive = f[0] != 0 || f[1] != 0 || f[2] != 0 || result.EmissiveTexture != nil

	switch mat.AlphaMode {
	case document.AlphaModeBlend:
		result.Alpha = AlphaBlend
	case document.AlphaModeMask:
		result.Alpha = AlphaMask
		if mat.AlphaCutoff != nil {
			result.AlphaCutoff = *mat.AlphaCutoff
		}
	}

	return result
}

// loadSlot resolves one texture slot: texture index → image URI → decoded
// texture. Any failure leaves the slot nil; the material falls back to its
// factor for that channel.
func (r *resolverImpl) loadSlot(ctx context.Context, materialName, slot string, info *document.TextureInfo, normalMap bool) *texture.Texture {
	if info == nil || r.textures == nil {
		return nil
	}

	uri, err := r.imageURI(info.Index)
	if err != nil {
		r.logger.Warn("texture reference broken",
			zap.String("material", materialName),
			zap.String("slot", slot),
			zap.Error(err))
		return nil
	}
	if uri == "" {
		return nil
	}

	tex, err := r.textures(ctx, uri, normalMap)
	if err != nil {
		r.logger.Warn("texture unavailable",
			zap.String("material", materialName),
			zap.String("slot", slot),
			zap.String("image", uri),
			zap.Error(err))
		return nil
	}
	return tex
}

// imageURI maps a texture index to its source image URI.
func (r *resolverImpl) imageURI(textureIndex int) (string, error) {
	if textureIndex < 0 || textureIndex >= len(r.doc.Textures) {
		return "", document.ErrReference("texture", textureIndex, len(r.doc.Textures))
	}
	tex := &r.doc.Textures[textureIndex]
	if tex.Source == nil {
		return "", nil
	}
	if *tex.Source < 0 || *tex.Source >= len(r.doc.Images) {
		return "", document.ErrReference("image", *tex.Source, len(r.doc.Images))
	}
	return r.doc.Images[*tex.Source].URI, nil
}
