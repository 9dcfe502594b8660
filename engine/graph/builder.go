package graph

import (
	"errors"

	"go.uber.org/zap"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/document"
)

// Graph is the flat NodeRecord arena produced by Build. Records are owned by
// the graph and mutated only by the streaming scheduler and loader.
type Graph struct {
	records []*NodeRecord

	// nodeToRecord maps a document node index to a position in records,
	// or -1 for nodes without a mesh.
	nodeToRecord []int
}

// Records returns the dense record arena.
//
// Returns:
//   - []*NodeRecord: all mesh-bearing node records
func (g *Graph) Records() []*NodeRecord {
	return g.records
}

// Record returns the record for a document node index, or nil when the node
// has no mesh or the index is out of range.
//
// Parameters:
//   - nodeIndex: the document node index
//
// Returns:
//   - *NodeRecord: the record or nil
func (g *Graph) Record(nodeIndex int) *NodeRecord {
	if nodeIndex < 0 || nodeIndex >= len(g.nodeToRecord) {
		return nil
	}
	pos := g.nodeToRecord[nodeIndex]
	if pos < 0 {
		return nil
	}
	return g.records[pos]
}

// BuildOption is a functional option for configuring Build.
type BuildOption func(*builder)

// WithLogger is an option builder that sets the logger used to report skipped
// nodes. Defaults to a no-op logger.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - BuildOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) BuildOption {
	return func(b *builder) {
		b.logger = logger
	}
}

// builder carries the walk state for one Build call.
type builder struct {
	doc    *document.Document
	logger *zap.Logger
	graph  *Graph
}

// Build walks the document's default scene depth-first and produces the
// NodeRecord arena. World transforms compose as world = parentWorld * local,
// where local is the node's explicit column-major matrix or its T/R/S
// composition. Per-node breakage — an out-of-range mesh, accessor, or buffer
// reference — skips that node with a logged ReferenceError; only a document
// with no usable structure at all is fatal (rejected earlier by the parser).
//
// Parameters:
//   - doc: the parsed document
//   - options: functional options (logging)
//
// Returns:
//   - *Graph: the record arena
//   - error: error if the default scene has no reachable nodes
func Build(doc *document.Document, options ...BuildOption) (*Graph, error) {
	b := &builder{
		doc:    doc,
		logger: zap.NewNop(),
		graph: &Graph{
			nodeToRecord: make([]int, len(doc.Nodes)),
		},
	}
	for _, option := range options {
		option(b)
	}
	for i := range b.graph.nodeToRecord {
		b.graph.nodeToRecord[i] = -1
	}

	var identity [16]float32
	common.Identity(identity[:])

	for _, root := range doc.DefaultScene().Nodes {
		b.walk(root, identity)
	}

	return b.graph, nil
}

// walk visits a node, composes its world transform, records it if it carries a
// mesh, and recurses into children.
func (b *builder) walk(nodeIndex int, parentWorld [16]float32) {
	if nodeIndex < 0 || nodeIndex >= len(b.doc.Nodes) {
		b.logger.Warn("skipping node with bad index",
			zap.Error(document.ErrReference("node", nodeIndex, len(b.doc.Nodes))))
		return
	}
	node := &b.doc.Nodes[nodeIndex]

	var local [16]float32
	localTransform(node, local[:])

	var world [16]float32
	common.Mul4(world[:], parentWorld[:], local[:])

	if node.Mesh != nil && b.graph.nodeToRecord[nodeIndex] < 0 {
		if record, err := b.buildRecord(nodeIndex, node, world); err != nil {
			var refErr document.ReferenceError
			if errors.As(err, &refErr) {
				b.logger.Warn("skipping node with broken reference",
					zap.Int("node", nodeIndex),
					zap.String("name", node.Name),
					zap.Error(err))
			} else {
				b.logger.Warn("skipping node",
					zap.Int("node", nodeIndex),
					zap.Error(err))
			}
		} else {
			b.graph.nodeToRecord[nodeIndex] = len(b.graph.records)
			b.graph.records = append(b.graph.records, record)
		}
	}

	for _, child := range node.Children {
		b.walk(child, world)
	}
}

// localTransform writes the node's local transform into out. An explicit
// matrix wins; otherwise T/R/S compose with spec defaults for absent fields.
func localTransform(node *document.Node, out []float32) {
	if node.Matrix != nil {
		copy(out, node.Matrix[:])
		return
	}

	t := [3]float32{0, 0, 0}
	r := [4]float32{0, 0, 0, 1}
	s := [3]float32{1, 1, 1}
	if node.Translation != nil {
		t = *node.Translation
	}
	if node.Rotation != nil {
		r = *node.Rotation
	}
	if node.Scale != nil {
		s = *node.Scale
	}
	common.ComposeTRS(out, t, r, s)
}

// buildRecord assembles the NodeRecord for a mesh-bearing node: world bounds
// from declared accessor min/max, the deduplicated buffer URI set, and the
// referenced material indices.
func (b *builder) buildRecord(nodeIndex int, node *document.Node, world [16]float32) (*NodeRecord, error) {
	doc := b.doc
	meshIndex := *node.Mesh
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, document.ErrReference("mesh", meshIndex, len(doc.Meshes))
	}
	mesh := &doc.Meshes[meshIndex]

	record := &NodeRecord{
		NodeIndex: nodeIndex,
		Name:      node.Name,
		MeshIndex: meshIndex,
		World:     world,
		Bounds:    common.NewAABB(),
	}
	if record.Name == "" {
		record.Name = mesh.Name
	}

	seenURIs := make(map[string]struct{})
	seenMaterials := make(map[int]struct{})

	for primIndex := range mesh.Primitives {
		prim := &mesh.Primitives[primIndex]

		for _, accessorIndex := range prim.Attributes {
			if err := b.collectBuffer(record, seenURIs, accessorIndex); err != nil {
				return nil, err
			}
		}
		if prim.Indices != nil {
			if err := b.collectBuffer(record, seenURIs, *prim.Indices); err != nil {
				return nil, err
			}
		}

		if prim.Material != nil {
			if _, seen := seenMaterials[*prim.Material]; !seen {
				seenMaterials[*prim.Material] = struct{}{}
				record.MaterialIndices = append(record.MaterialIndices, *prim.Material)
			}
		}

		// Local bounds come from the position accessor's declared min/max; a
		// primitive that omits them contributes nothing.
		posIndex, ok := prim.Attributes[document.AttributePosition]
		if !ok {
			continue
		}
		if posIndex < 0 || posIndex >= len(doc.Accessors) {
			return nil, document.ErrReference("accessor", posIndex, len(doc.Accessors))
		}
		acc := &doc.Accessors[posIndex]
		if len(acc.Min) < 3 || len(acc.Max) < 3 {
			continue
		}
		local := common.AABB{
			Min: [3]float32{acc.Min[0], acc.Min[1], acc.Min[2]},
			Max: [3]float32{acc.Max[0], acc.Max[1], acc.Max[2]},
		}
		record.Bounds = record.Bounds.Union(local.Transform(world[:]))
	}

	return record, nil
}

// collectBuffer resolves an accessor down to its buffer URI and appends it to
// the record's deduplicated URI set.
func (b *builder) collectBuffer(record *NodeRecord, seen map[string]struct{}, accessorIndex int) error {
	doc := b.doc
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return document.ErrReference("accessor", accessorIndex, len(doc.Accessors))
	}
	acc := &doc.Accessors[accessorIndex]
	if acc.BufferView == nil {
		return nil
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return document.ErrReference("bufferView", *acc.BufferView, len(doc.BufferViews))
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return document.ErrReference("buffer", bv.Buffer, len(doc.Buffers))
	}

	uri := doc.Buffers[bv.Buffer].URI
	if _, dup := seen[uri]; dup {
		return nil
	}
	seen[uri] = struct{}{}
	record.BufferURIs = append(record.BufferURIs, uri)
	return nil
}
