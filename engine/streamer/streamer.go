// Package streamer drives incremental scene streaming: a fixed-interval
// visibility scheduler classifies every mesh-bearing node against the
// observer, feeds a membership-deduplicated load queue, and a concurrency-
// bounded loader fetches, decodes, and hands geometry to the renderer through
// content-addressed caches. Unloading releases only per-node geometry; shared
// cache entries survive until shutdown.
package streamer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"

	"github.com/strata3d/strata/engine/cache"
	"github.com/strata3d/strata/engine/config"
	"github.com/strata3d/strata/engine/document"
	"github.com/strata3d/strata/engine/fetch"
	"github.com/strata3d/strata/engine/graph"
	"github.com/strata3d/strata/engine/material"
	"github.com/strata3d/strata/engine/texture"
)

// containsEpsilon is the slack, on squared distance to the AABB's closest
// point, under which the observer counts as inside a node's bounds. An
// observer embedded in geometry must never trigger an unload of that
// geometry, however far the box center is.
const containsEpsilon = 1e-4

// loadPoolQueueSize is the task backlog of the load worker pool. Drain is
// gated on the in-flight cap, so the backlog only ever holds a handful of
// submissions between ticks.
const loadPoolQueueSize = 64

// streamer is the implementation of the Streamer interface.
type streamer struct {
	mu sync.Mutex

	doc   *document.Document
	graph *graph.Graph
	cfg   config.Config

	logger   *zap.Logger
	renderer Renderer
	observer Observer
	fetcher  fetch.Fetcher

	buffers   *cache.BufferCache
	textures  *cache.TextureCache
	materials *cache.MaterialCache

	queue    *loadQueue
	inFlight map[int]struct{}

	// nodeMaterials holds each loaded node's reference to its shared resolved
	// materials. Unload clears the reference, never the cache entries.
	nodeMaterials map[int][]*material.Resolved

	pool       worker.DynamicWorkerPool
	loadWG     sync.WaitGroup
	nextTaskID int

	loadCtx context.Context

	ticking      bool
	quitChannel  chan struct{}
	tickerWG     sync.WaitGroup
	shutdownOnce sync.Once
}

// Streamer is the public surface of the streaming core: a tick-driven update
// entry point, an observability query, and a teardown entry point. All
// mutable state lives inside the Streamer; the caller owns the lifecycle.
type Streamer interface {
	// Update runs one scheduler tick synchronously: sample the observer,
	// classify every node, unload out-of-range nodes immediately, enqueue
	// load-eligible nodes, and drain the queue up to the concurrency cap.
	// Safe to call from a single goroutine; Start drives it automatically.
	Update()

	// Start launches the fixed-interval tick loop in its own goroutine.
	// The loop stops when ctx is cancelled or Shutdown is called.
	//
	// Parameters:
	//   - ctx: context bounding the tick loop and all fetches it spawns
	//
	// Returns:
	//   - error: error if the streamer is already running
	Start(ctx context.Context) error

	// Stats returns a snapshot of streaming counters for observability.
	//
	// Returns:
	//   - Stats: the current counters
	Stats() Stats

	// Shutdown stops the tick loop, waits for in-flight loads to settle,
	// destroys every renderable handle, and purges all caches. Safe to call
	// multiple times; subsequent calls are no-ops.
	Shutdown()
}

var _ Streamer = &streamer{}

// New creates a Streamer for a parsed document. The scene graph is built
// eagerly; a document whose default scene yields no usable nodes is not an
// error — the streamer simply has nothing to stream.
//
// Parameters:
//   - doc: the parsed, immutable document
//   - options: functional options (fetcher, renderer, observer, config, logging)
//
// Returns:
//   - Streamer: the streamer
//   - error: error if a required collaborator is missing or the config is invalid
func New(doc *document.Document, options ...StreamerOption) (Streamer, error) {
	s := &streamer{
		doc:           doc,
		cfg:           config.Default(),
		logger:        zap.NewNop(),
		queue:         newLoadQueue(),
		inFlight:      make(map[int]struct{}),
		nodeMaterials: make(map[int][]*material.Resolved),
		loadCtx:       context.Background(),
		quitChannel:   make(chan struct{}),
	}

	for _, option := range options {
		option(s)
	}

	if s.fetcher == nil {
		return nil, errors.New("streamer: a Fetcher is required")
	}
	if s.renderer == nil {
		return nil, errors.New("streamer: a Renderer is required")
	}
	if s.observer == nil {
		return nil, errors.New("streamer: an Observer is required")
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	g, err := graph.Build(doc, graph.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.graph = g

	s.buffers = cache.NewBufferCache(s.fetcher)
	s.textures = cache.NewTextureCache(s.fetcher, texture.Options{
		MaxDimension:        s.cfg.MaxTextureDimension,
		PadBlockCompression: s.cfg.PadBlockCompression,
	})
	resolver := material.NewResolver(doc,
		material.WithTextureLoader(s.textures.Get),
		material.WithLogger(s.logger),
	)
	s.materials = cache.NewMaterialCache(resolver)

	s.pool = worker.NewDynamicWorkerPool(s.cfg.MaxConcurrentLoads, loadPoolQueueSize, time.Second)

	s.logger.Info("streamer initialized",
		zap.Int("nodes", len(g.Records())),
		zap.Float32("loadDistance", s.cfg.LoadDistance),
		zap.Float32("unloadDistance", s.cfg.UnloadDistance),
		zap.Int("maxConcurrentLoads", s.cfg.MaxConcurrentLoads))

	return s, nil
}

func (s *streamer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		return errors.New("streamer: already running")
	}
	s.ticking = true
	s.loadCtx = ctx
	s.mu.Unlock()

	s.tickerWG.Add(1)
	go s.tickLoop(ctx)
	return nil
}

// tickLoop fires Update at the configured interval until the context is
// cancelled or the streamer shuts down.
func (s *streamer) tickLoop(ctx context.Context) {
	defer s.tickerWG.Done()

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quitChannel:
			return
		case <-ticker.C:
			s.Update()
		}
	}
}

func (s *streamer) Update() {
	position, frustum := s.observer.State()
	s.schedule(position, frustum)
	s.drain()
}

func (s *streamer) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.quitChannel)
		s.tickerWG.Wait()

		// No mid-load cancellation: started loads run to completion or failure.
		s.loadWG.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()

		s.queue.clear()

		for _, record := range s.graph.Records() {
			if record.Handle != nil {
				s.renderer.DestroyRenderable(record.Handle)
				record.Handle = nil
			}
			record.Visible = false
			record.SetState(graph.StateNotLoaded)
		}
		s.nodeMaterials = make(map[int][]*material.Resolved)

		s.buffers.Purge()
		s.textures.Purge()
		s.materials.Purge()

		s.logger.Info("streamer shut down")
	})
}
