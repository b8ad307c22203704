package scanmesh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func noopOptions() ProcessingOptions {
	return ProcessingOptions{
		SmoothingIterations: 0,
		SmoothingFactor:     0.5,
		DecimationRatio:     1,
		FillHoles:           false,
		RemoveNoise:         false,
		NoiseThreshold:      DEFAULT_NOISE_THRESHOLD,
		BakeTexture:         false,
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (l *eventLog) observe(ev ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ProgressEvent, len(l.events))
	copy(out, l.events)
	return out
}

func TestPipelineEmptyMesh(t *testing.T) {
	t.Parallel()

	p := NewPipeline(DefaultProcessingOptions())
	_, err := p.Run(context.Background(), NewMesh())
	assert.True(t, errors.Is(err, ErrEmptyMesh))

	_, err = p.Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyMesh))
}

func TestPipelineAllStagesDisabled(t *testing.T) {
	t.Parallel()

	// With every stage disabled the run must be an identity: same
	// geometry out, full progress reported.
	m := makeCube()
	p := NewPipeline(noopOptions())

	res, err := p.Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, STEP_COMPLETE, res.LastStep)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, m.Vertices, res.Mesh.Vertices)
	assert.Equal(t, m.Faces, res.Mesh.Faces)
}

func TestPipelineObserverSeesEveryStep(t *testing.T) {
	t.Parallel()

	log := &eventLog{}
	p := NewPipeline(noopOptions())
	p.Observer = log.observe

	res, err := p.Run(context.Background(), makeCube())
	require.NoError(t, err)
	require.True(t, res.Completed)

	require.Eventually(t, func() bool {
		return len(log.snapshot()) == 6
	}, time.Second, 5*time.Millisecond, "observer should receive one event per step")

	events := log.snapshot()
	wantSteps := []ProcessingStep{
		STEP_REPAIR, STEP_NOISE_FILTER, STEP_SMOOTH,
		STEP_DECIMATE, STEP_TEXTURE_BAKE, STEP_COMPLETE,
	}
	prev := -1.0
	for i, ev := range events {
		assert.Equal(t, wantSteps[i], ev.Step)
		assert.Equal(t, wantSteps[i].Progress(), ev.Progress)
		assert.Greater(t, ev.Progress, prev)
		assert.NotNil(t, ev.Mesh)
		prev = ev.Progress
	}
	assert.Equal(t, 1.0, events[len(events)-1].Progress)
}

func TestPipelineProcessesScan(t *testing.T) {
	t.Parallel()

	// An open cube with options scaled to the fixture: the hole gets
	// filled, smoothing shrinks the shape, decimation may reduce it.
	m := makeOpenCube()
	p := NewPipeline(ProcessingOptions{
		SmoothingIterations: 1,
		SmoothingFactor:     0.5,
		DecimationRatio:     0.9,
		FillHoles:           true,
		RemoveNoise:         true,
		NoiseThreshold:      2,
		BakeTexture:         false,
	})

	res, err := p.Run(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, STEP_COMPLETE, res.LastStep)
	require.NoError(t, res.Mesh.Validate())
	assert.False(t, res.Mesh.IsEmpty())

	// Input is never mutated by a run.
	assert.Equal(t, makeOpenCube().Vertices, m.Vertices)
	assert.Equal(t, makeOpenCube().Faces, m.Faces)
}

func TestPipelineOptionValidationWarns(t *testing.T) {
	t.Parallel()

	opts := noopOptions()
	opts.NoiseThreshold = -1
	p := NewPipeline(opts)

	res, err := p.Run(context.Background(), makeCube())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "noiseThreshold")
	// The caller's options stay as provided.
	assert.Equal(t, -1.0, p.Options.NoiseThreshold)
}

func TestPipelineCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	core, logs := observer.New(zapcore.InfoLevel)
	m := makeCube()
	p := NewPipeline(DefaultProcessingOptions())
	p.Logger = zap.New(core)
	res, err := p.Run(ctx, m)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Completed)
	assert.Same(t, m, res.Mesh)

	// Nothing ran, and the log says so instead of naming a stage.
	assert.Equal(t, 1, logs.FilterMessage("pipeline cancelled before first stage").Len())
	assert.Zero(t, logs.FilterMessage("pipeline cancelled").Len())
}

// cancelAfterPolls reports cancellation from its n-th Done poll on. Run
// polls once per stage boundary, so the cutoff lands deterministically
// between two stages.
type cancelAfterPolls struct {
	context.Context
	after int
	polls int
}

func (c *cancelAfterPolls) Done() <-chan struct{} {
	c.polls++
	if c.polls > c.after {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.Context.Done()
}

func TestPipelineCancelBetweenStages(t *testing.T) {
	t.Parallel()

	// Cancelled at the second stage boundary: repair has run, nothing
	// after it has. The result carries repair's output, not the input.
	m := makeOpenCube()
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewPipeline(DefaultProcessingOptions())
	p.Logger = zap.New(core)
	ctx := &cancelAfterPolls{Context: context.Background(), after: 1}

	res, err := p.Run(ctx, m)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.False(t, res.Completed)
	assert.Equal(t, STEP_REPAIR, res.LastStep)
	require.NotSame(t, m, res.Mesh)
	require.NoError(t, res.Mesh.Validate())
	assert.Equal(t, 9, res.Mesh.VertexCount())
	assert.Equal(t, 14, res.Mesh.FaceCount())
	assert.Empty(t, boundaryEdges(res.Mesh))

	// The input keeps its hole.
	assert.Equal(t, 10, m.FaceCount())
	assert.Len(t, boundaryEdges(m), 4)

	entries := logs.FilterMessage("pipeline cancelled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "repair", entries[0].ContextMap()["after"])
}

func TestPipelineConcurrentRuns(t *testing.T) {
	t.Parallel()

	p := NewPipeline(noopOptions())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Run(context.Background(), makeCube())
			assert.NoError(t, err)
			assert.True(t, res.Completed)
		}()
	}
	wg.Wait()
}
