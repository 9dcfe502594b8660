package streamer

import (
	"go.uber.org/zap"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/graph"
)

// schedule classifies every mesh-bearing node against the observer sample.
// Load and unload thresholds form a hysteresis band: a node loads when it
// enters the frustum inside LoadDistance and unloads only past
// UnloadDistance, so small observer movements near either threshold cannot
// thrash. Unloads are applied synchronously; loads are only enqueued here.
func (s *streamer) schedule(position [3]float32, frustum common.Frustum) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.graph.Records() {
		distance := record.Bounds.DistanceToCenter(position)
		inFrustum := frustum.IntersectsAABB(record.Bounds)
		inside := record.Bounds.ContainsPoint(position, containsEpsilon)

		switch record.State() {
		case graph.StateNotLoaded:
			if inFrustum && distance < s.cfg.LoadDistance {
				_, loading := s.inFlight[record.NodeIndex]
				if !loading && !s.queue.contains(record.NodeIndex) {
					s.queue.push(record)
					s.logger.Debug("node queued for load",
						zap.Int("node", record.NodeIndex),
						zap.String("name", record.Name),
						zap.Float32("distance", distance))
				}
			}
		case graph.StateLoaded:
			if distance > s.cfg.UnloadDistance && !inside {
				s.unloadLocked(record, distance)
			}
		}

		record.Visible = record.State() == graph.StateLoaded &&
			inFrustum && distance < s.cfg.LoadDistance
	}
}

// unloadLocked releases a loaded node's renderable and drops its material
// references. Cache entries stay resident for the next load. Caller holds mu.
func (s *streamer) unloadLocked(record *graph.NodeRecord, distance float32) {
	if record.Handle != nil {
		s.renderer.DestroyRenderable(record.Handle)
		record.Handle = nil
	}
	delete(s.nodeMaterials, record.NodeIndex)
	record.Visible = false
	record.SetState(graph.StateNotLoaded)

	s.logger.Debug("node unloaded",
		zap.Int("node", record.NodeIndex),
		zap.String("name", record.Name),
		zap.Float32("distance", distance))
}
