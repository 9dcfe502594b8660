package streamer

import (
	"context"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"github.com/strata3d/strata/engine/codec"
	"github.com/strata3d/strata/engine/graph"
	"github.com/strata3d/strata/engine/material"
)

// drain moves queued nodes into the worker pool until the in-flight count
// reaches the configured concurrency cap. Nodes that left the hysteresis band
// while queued are dropped without loading.
func (s *streamer) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.loadCtx

	for len(s.inFlight) < s.cfg.MaxConcurrentLoads {
		record := s.queue.pop()
		if record == nil {
			return
		}
		if record.State() != graph.StateNotLoaded {
			continue
		}
		if _, loading := s.inFlight[record.NodeIndex]; loading {
			continue
		}

		record.SetState(graph.StateLoading)
		s.inFlight[record.NodeIndex] = struct{}{}
		s.loadWG.Add(1)

		s.nextTaskID++
		node := record
		s.pool.SubmitTask(worker.Task{
			ID: s.nextTaskID,
			Do: func() (any, error) {
				defer s.loadWG.Done()
				s.loadNode(ctx, node)
				return nil, nil
			},
		})
	}
}

// loadNode runs the full load sequence for one node: fetch every payload the
// node depends on through the buffer cache, decode its geometry, resolve its
// materials, and hand the result to the renderer. Any failure returns the
// node to the not-loaded state so a later tick retries it.
func (s *streamer) loadNode(ctx context.Context, record *graph.NodeRecord) {
	payloads := make(codec.PayloadSet, len(record.BufferURIs))
	for _, uri := range record.BufferURIs {
		data, err := s.buffers.Get(ctx, uri)
		if err != nil {
			s.failLoad(record, "payload fetch failed", zap.String("uri", uri), zap.Error(err))
			return
		}
		payloads[uri] = data
	}

	mesh, err := codec.ExtractPrimitive(s.doc, payloads, record.MeshIndex)
	if err != nil {
		s.failLoad(record, "geometry decode failed", zap.Error(err))
		return
	}

	materials := s.resolveMaterials(ctx, record)

	handle, err := s.renderer.CreateRenderable(mesh, materials)
	if err != nil {
		s.failLoad(record, "renderable creation failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	record.Handle = handle
	s.nodeMaterials[record.NodeIndex] = materials
	delete(s.inFlight, record.NodeIndex)
	s.mu.Unlock()
	record.SetState(graph.StateLoaded)

	s.logger.Debug("node loaded",
		zap.Int("node", record.NodeIndex),
		zap.String("name", record.Name),
		zap.Int("vertices", len(mesh.Positions)),
		zap.Int("indices", len(mesh.Indices)))
}

// resolveMaterials maps a node's material indices through the material cache.
// A node with no material reference still gets the shared fallback so the
// renderer never sees an empty material list.
func (s *streamer) resolveMaterials(ctx context.Context, record *graph.NodeRecord) []*material.Resolved {
	indices := record.MaterialIndices
	if len(indices) == 0 {
		indices = []int{-1}
	}
	resolved := make([]*material.Resolved, 0, len(indices))
	for _, index := range indices {
		resolved = append(resolved, s.materials.Get(ctx, index))
	}
	return resolved
}

// failLoad logs a load failure and returns the node to the not-loaded state,
// making it eligible again the next time the scheduler sees it in range.
func (s *streamer) failLoad(record *graph.NodeRecord, reason string, fields ...zap.Field) {
	fields = append(fields,
		zap.Int("node", record.NodeIndex),
		zap.String("name", record.Name))
	s.logger.Warn(reason, fields...)

	s.mu.Lock()
	delete(s.inFlight, record.NodeIndex)
	s.mu.Unlock()
	record.SetState(graph.StateNotLoaded)
}
