package streamer

import "github.com/strata3d/strata/engine/graph"

// Stats is a point-in-time snapshot of streaming counters.
type Stats struct {
	// TotalNodes is the number of mesh-bearing nodes in the scene graph.
	TotalNodes int
	// Loaded is the number of nodes currently holding a renderable handle.
	Loaded int
	// Visible is the number of loaded nodes inside the frustum and load range.
	Visible int
	// InFlight is the number of loads currently running in the worker pool.
	InFlight int
	// Queued is the number of nodes waiting in the load queue.
	Queued int
	// CachedBuffers is the number of resident buffer cache entries.
	CachedBuffers int
	// CachedTextures is the number of resident texture cache entries.
	CachedTextures int
	// CachedMaterials is the number of resident resolved materials.
	CachedMaterials int
	// BufferHits and BufferMisses count buffer cache lookups since start.
	BufferHits   int64
	BufferMisses int64
}

func (s *streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalNodes:      len(s.graph.Records()),
		InFlight:        len(s.inFlight),
		Queued:          s.queue.len(),
		CachedBuffers:   s.buffers.Len(),
		CachedTextures:  s.textures.Len(),
		CachedMaterials: s.materials.Len(),
	}
	stats.BufferHits, stats.BufferMisses = s.buffers.Stats()

	for _, record := range s.graph.Records() {
		if record.State() == graph.StateLoaded {
			stats.Loaded++
			if record.Visible {
				stats.Visible++
			}
		}
	}
	return stats
}
