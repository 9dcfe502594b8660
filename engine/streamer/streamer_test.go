package streamer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/strata/common"
	"github.com/strata3d/strata/engine/codec"
	"github.com/strata3d/strata/engine/config"
	"github.com/strata3d/strata/engine/document"
	"github.com/strata3d/strata/engine/fetch"
	"github.com/strata3d/strata/engine/material"
)

const (
	waitFor = 3 * time.Second
	poll    = 5 * time.Millisecond
)

func intPtr(v int) *int { return &v }

// trianglePayload packs three vec3 positions and three u16 indices.
func trianglePayload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2}))
	return buf.Bytes()
}

// sceneDoc builds a document with one triangle mesh and one node per offset,
// each translated along the given offset. Declared position bounds are
// boundsMin..boundsMax.
func sceneDoc(offsets [][3]float32, boundsMin, boundsMax [3]float32) *document.Document {
	doc := &document.Document{
		Asset:  document.Asset{Version: "2.0"},
		Scene:  intPtr(0),
		Scenes: []document.Scene{{}},
		Meshes: []document.Mesh{{
			Name: "tri",
			Primitives: []document.Primitive{{
				Attributes: map[string]int{document.AttributePosition: 0},
				Indices:    intPtr(1),
			}},
		}},
		Accessors: []document.Accessor{
			{
				BufferView:    intPtr(0),
				ComponentType: document.ComponentTypeFloat,
				Count:         3,
				Type:          document.AccessorTypeVec3,
				Min:           boundsMin[:],
				Max:           boundsMax[:],
			},
			{
				BufferView:    intPtr(1),
				ComponentType: document.ComponentTypeUnsignedShort,
				Count:         3,
				Type:          document.AccessorTypeScalar,
			},
		},
		BufferViews: []document.BufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: 36},
			{Buffer: 0, ByteOffset: 36, ByteLength: 6},
		},
		Buffers: []document.Buffer{{URI: "tri.bin", ByteLength: 42}},
	}

	for i, offset := range offsets {
		translation := offset
		doc.Nodes = append(doc.Nodes, document.Node{
			Mesh:        intPtr(0),
			Translation: &translation,
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, i)
	}

	return doc
}

// everywhereFrustum accepts every non-empty box.
func everywhereFrustum() common.Frustum {
	var f common.Frustum
	for i := range f.Planes {
		f.Planes[i] = common.Plane{Distance: 1}
	}
	return f
}

// nowhereFrustum rejects every box.
func nowhereFrustum() common.Frustum {
	var f common.Frustum
	for i := range f.Planes {
		f.Planes[i] = common.Plane{Distance: -1}
	}
	return f
}

// testObserver is a mutable observer the test repositions between ticks.
type testObserver struct {
	mu      sync.Mutex
	pos     [3]float32
	frustum common.Frustum
}

func newTestObserver(pos [3]float32) *testObserver {
	return &testObserver{pos: pos, frustum: everywhereFrustum()}
}

func (o *testObserver) State() ([3]float32, common.Frustum) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pos, o.frustum
}

func (o *testObserver) moveTo(pos [3]float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pos = pos
}

func (o *testObserver) setFrustum(f common.Frustum) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frustum = f
}

// fakeRenderer counts created and destroyed renderables and remembers the
// geometry sizes of the last mesh it was handed.
type fakeRenderer struct {
	mu           sync.Mutex
	created      int
	destroyed    int
	lastVertices int
	lastIndices  int
	createErr    error
}

func (r *fakeRenderer) CreateRenderable(mesh *codec.MeshData, _ []*material.Resolved) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return nil, err
	}
	r.created++
	r.lastVertices = len(mesh.Positions)
	r.lastIndices = len(mesh.Indices)
	return mesh.Name, nil
}

func (r *fakeRenderer) DestroyRenderable(any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed++
}

func (r *fakeRenderer) counts() (created, destroyed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.destroyed
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.TickIntervalMS = 10
	return cfg
}

// newTestStreamer wires a streamer over an in-memory payload set.
func newTestStreamer(t *testing.T, doc *document.Document, observer Observer, renderer Renderer, fetcher fetch.Fetcher, cfg config.Config) Streamer {
	t.Helper()
	s, err := New(doc,
		streamerOptions(cfg, observer, renderer, fetcher)...,
	)
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)
	return s
}

func streamerOptions(cfg config.Config, observer Observer, renderer Renderer, fetcher fetch.Fetcher) []StreamerOption {
	return []StreamerOption{
		WithConfig(cfg),
		WithObserver(observer),
		WithRenderer(renderer),
		WithFetcher(fetcher),
	}
}

func payloadFetcher(t *testing.T) fetch.Fetcher {
	t.Helper()
	payload := trianglePayload(t)
	return fetch.FetcherFunc(func(_ context.Context, uri string) ([]byte, error) {
		if uri != "tri.bin" {
			return nil, errors.New("unknown payload " + uri)
		}
		return payload, nil
	})
}

func TestNewRequiresCollaborators(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{})
	renderer := &fakeRenderer{}
	fetcher := payloadFetcher(t)

	_, err := New(doc, WithRenderer(renderer), WithObserver(observer))
	assert.ErrorContains(t, err, "Fetcher")

	_, err = New(doc, WithFetcher(fetcher), WithObserver(observer))
	assert.ErrorContains(t, err, "Renderer")

	_, err = New(doc, WithFetcher(fetcher), WithRenderer(renderer))
	assert.ErrorContains(t, err, "Observer")

	bad := testConfig()
	bad.UnloadDistance = bad.LoadDistance
	_, err = New(doc, WithConfig(bad), WithFetcher(fetcher), WithRenderer(renderer), WithObserver(observer))
	assert.Error(t, err)
}

func TestLoadsNodeInRange(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)

	created, destroyed := renderer.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, destroyed)

	// One triangle: Positions holds one entry per vertex.
	renderer.mu.Lock()
	assert.Equal(t, 3, renderer.lastVertices)
	assert.Equal(t, 3, renderer.lastIndices)
	renderer.mu.Unlock()

	// The next tick marks the loaded node visible.
	s.Update()
	stats := s.Stats()
	assert.Equal(t, 1, stats.Visible)
	assert.Equal(t, 1, stats.CachedBuffers)
}

func TestDoesNotLoadNodeOutOfRange(t *testing.T) {
	doc := sceneDoc([][3]float32{{500, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	for i := 0; i < 5; i++ {
		s.Update()
	}
	time.Sleep(50 * time.Millisecond)

	stats := s.Stats()
	assert.Zero(t, stats.Loaded)
	assert.Zero(t, stats.Queued)
	created, _ := renderer.counts()
	assert.Zero(t, created)
}

func TestDoesNotLoadNodeOutsideFrustum(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	observer.setFrustum(nowhereFrustum())
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	for i := 0; i < 5; i++ {
		s.Update()
	}
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, s.Stats().Loaded)

	// Once the node enters the frustum it loads.
	observer.setFrustum(everywhereFrustum())
	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)
}

func TestHysteresisBand(t *testing.T) {
	// Node bounds center sits at (0.5, 0.5, 0).
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0.5, 0.5, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)

	// Inside the band (load < distance < unload): stays loaded, not visible.
	observer.moveTo([3]float32{120, 0.5, 0})
	s.Update()
	stats := s.Stats()
	assert.Equal(t, 1, stats.Loaded)
	assert.Zero(t, stats.Visible)
	_, destroyed := renderer.counts()
	assert.Zero(t, destroyed)

	// Oscillating within the band never unloads or reloads.
	for i := 0; i < 10; i++ {
		observer.moveTo([3]float32{90, 0.5, 0})
		s.Update()
		observer.moveTo([3]float32{140, 0.5, 0})
		s.Update()
	}
	created, destroyed := renderer.counts()
	assert.Equal(t, 1, created)
	assert.Zero(t, destroyed)

	// Past the unload threshold the node unloads synchronously.
	observer.moveTo([3]float32{200, 0.5, 0})
	s.Update()
	stats = s.Stats()
	assert.Zero(t, stats.Loaded)
	_, destroyed = renderer.counts()
	assert.Equal(t, 1, destroyed)

	// Back inside the band: no reload until within the load distance.
	observer.moveTo([3]float32{120, 0.5, 0})
	s.Update()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, s.Stats().Loaded)

	observer.moveTo([3]float32{50, 0.5, 0})
	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)
}

func TestObserverInsideBoundsNeverUnloads(t *testing.T) {
	// A large node whose center is far from an observer standing inside it.
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{400, 400, 400})
	observer := newTestObserver([3]float32{200, 200, 200})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)

	// Inside the box, ~344 units from its center: past the unload distance
	// but still contained, so the node must stay loaded.
	observer.moveTo([3]float32{1, 1, 1})
	for i := 0; i < 5; i++ {
		s.Update()
	}
	assert.Equal(t, 1, s.Stats().Loaded)
	_, destroyed := renderer.counts()
	assert.Zero(t, destroyed)
}

func TestConcurrencyCapAndPayloadDedup(t *testing.T) {
	offsets := make([][3]float32, 6)
	for i := range offsets {
		offsets[i] = [3]float32{float32(i) * 2, 0, 0}
	}
	doc := sceneDoc(offsets, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})

	payload := trianglePayload(t)
	gate := make(chan struct{})
	var fetchCalls int
	var mu sync.Mutex
	fetcher := fetch.FetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
		mu.Lock()
		fetchCalls++
		mu.Unlock()
		<-gate
		return payload, nil
	})

	cfg := testConfig()
	cfg.MaxConcurrentLoads = 2
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, fetcher, cfg)

	s.Update()
	stats := s.Stats()
	assert.LessOrEqual(t, stats.InFlight, 2)
	assert.Equal(t, 6, stats.InFlight+stats.Queued)

	// Further ticks never push the in-flight count past the cap.
	for i := 0; i < 3; i++ {
		s.Update()
		assert.LessOrEqual(t, s.Stats().InFlight, 2)
	}

	close(gate)
	require.Eventually(t, func() bool {
		s.Update()
		return s.Stats().Loaded == 6
	}, waitFor, poll)

	// All six nodes share one payload: exactly one fetch.
	mu.Lock()
	assert.Equal(t, 1, fetchCalls)
	mu.Unlock()
	assert.Equal(t, 1, s.Stats().CachedBuffers)
}

func TestRetriesAfterFetchFailure(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})

	payload := trianglePayload(t)
	var mu sync.Mutex
	failures := 1
	fetcher := fetch.FetcherFunc(func(_ context.Context, _ string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, errors.New("transient I/O failure")
		}
		return payload, nil
	})

	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, fetcher, testConfig())

	require.Eventually(t, func() bool {
		s.Update()
		return s.Stats().Loaded == 1
	}, waitFor, poll)
}

func TestRetriesAfterRendererFailure(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{createErr: errors.New("out of GPU memory")}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	require.Eventually(t, func() bool {
		s.Update()
		return s.Stats().Loaded == 1
	}, waitFor, poll)

	created, _ := renderer.counts()
	assert.Equal(t, 1, created)
}

func TestVisibilityTracksFrustum(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)

	s.Update()
	assert.Equal(t, 1, s.Stats().Visible)

	// Turning away hides the node but keeps it resident.
	observer.setFrustum(nowhereFrustum())
	s.Update()
	stats := s.Stats()
	assert.Zero(t, stats.Visible)
	assert.Equal(t, 1, stats.Loaded)
}

func TestStartDrivesTicks(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx))

	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)
}

func TestShutdownReleasesEverything(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}, {2, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 2
	}, waitFor, poll)

	s.Shutdown()

	stats := s.Stats()
	assert.Zero(t, stats.Loaded)
	assert.Zero(t, stats.Visible)
	assert.Zero(t, stats.CachedBuffers)
	assert.Zero(t, stats.CachedMaterials)

	created, destroyed := renderer.counts()
	assert.Equal(t, created, destroyed)

	// Shutdown is idempotent.
	s.Shutdown()
}

func TestStatsSnapshot(t *testing.T) {
	doc := sceneDoc([][3]float32{{0, 0, 0}, {300, 0, 0}}, [3]float32{0, 0, 0}, [3]float32{1, 1, 0})
	observer := newTestObserver([3]float32{0, 0, 0})
	renderer := &fakeRenderer{}
	s := newTestStreamer(t, doc, observer, renderer, payloadFetcher(t), testConfig())

	assert.Equal(t, 2, s.Stats().TotalNodes)

	s.Update()
	require.Eventually(t, func() bool {
		return s.Stats().Loaded == 1
	}, waitFor, poll)

	s.Update()
	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalNodes)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, 1, stats.Visible)
	assert.Equal(t, 1, stats.CachedMaterials)
}
