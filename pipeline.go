package scanmesh

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ProgressEvent is emitted after every pipeline stage, carrying the mesh
// as it stands. The mesh is the stage's own output and is never mutated
// afterwards, so observers may hold it.
type ProgressEvent struct {
	Step     ProcessingStep
	Progress float64
	Mesh     *Mesh
}

// Observer receives progress events. Delivery runs on a dispatcher
// goroutine owned by the invocation; a slow observer loses events instead
// of stalling the pipeline.
type Observer func(ProgressEvent)

// PipelineResult is what a Run produces. A cancelled run carries the last
// fully produced mesh with Completed false; cancellation is an outcome,
// not an error. LastStep is the latest stage boundary the run passed; a
// run cancelled before the first stage keeps the zero value STEP_REPAIR
// and hands back the input mesh itself.
type PipelineResult struct {
	Mesh      *Mesh
	Completed bool
	LastStep  ProcessingStep
	Warnings  []string
}

// Pipeline drives the processing stages in their fixed order:
// repair, noiseFilter, smooth, decimate, textureBake. Disabled stages are
// skipped but still advance progress. A Pipeline value is stateless across
// runs; concurrent Runs are independent.
type Pipeline struct {
	Options  ProcessingOptions
	Observer Observer
	Logger   *zap.Logger
}

func NewPipeline(opts ProcessingOptions) *Pipeline {
	return &Pipeline{Options: opts}
}

const observerBuffer = 16

type progressEmitter struct {
	ch chan ProgressEvent
}

func newProgressEmitter(obs Observer) *progressEmitter {
	if obs == nil {
		return &progressEmitter{}
	}
	e := &progressEmitter{ch: make(chan ProgressEvent, observerBuffer)}
	go func() {
		for ev := range e.ch {
			obs(ev)
		}
	}()
	return e
}

func (e *progressEmitter) emit(ev ProgressEvent) {
	if e.ch == nil {
		return
	}
	select {
	case e.ch <- ev:
	default:
	}
}

func (e *progressEmitter) close() {
	if e.ch != nil {
		close(e.ch)
	}
}

// Run executes the stages on m and returns the processed mesh. The
// context is polled only between stages; no stage is interrupted mid
// flight. An empty input fails with ErrEmptyMesh before any stage runs.
func (p *Pipeline) Run(ctx context.Context, m *Mesh) (*PipelineResult, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	opts := p.Options
	var warnings []string
	for _, field := range opts.Validate() {
		warnings = append(warnings, fmt.Sprintf("option %s out of range, reset to default", field))
		log.Warn("processing option out of range", zap.String("option", field))
	}

	emitter := newProgressEmitter(p.Observer)
	defer emitter.close()

	type stage struct {
		step    ProcessingStep
		enabled bool
		run     func(*Mesh) (*Mesh, []string, error)
	}
	stages := []stage{
		{STEP_REPAIR, opts.FillHoles, func(in *Mesh) (*Mesh, []string, error) {
			return FillHoles(in)
		}},
		{STEP_NOISE_FILTER, opts.RemoveNoise, func(in *Mesh) (*Mesh, []string, error) {
			out, err := FilterNoise(in, opts.NoiseThreshold)
			return out, nil, err
		}},
		{STEP_SMOOTH, opts.SmoothingIterations > 0 && opts.SmoothingFactor > 0, func(in *Mesh) (*Mesh, []string, error) {
			out, err := Smooth(in, opts.SmoothingIterations, opts.SmoothingFactor)
			return out, nil, err
		}},
		{STEP_DECIMATE, opts.DecimationRatio < 1, func(in *Mesh) (*Mesh, []string, error) {
			out, err := Decimate(in, opts.DecimationRatio)
			return out, nil, err
		}},
		{STEP_TEXTURE_BAKE, opts.BakeTexture, func(in *Mesh) (*Mesh, []string, error) {
			return BakeTexture(in)
		}},
	}

	cur := m
	result := &PipelineResult{}
	for i, st := range stages {
		select {
		case <-ctx.Done():
			result.Mesh = cur
			result.Warnings = warnings
			if i == 0 {
				log.Info("pipeline cancelled before first stage",
					zap.Int("vertices", cur.VertexCount()),
					zap.Int("faces", cur.FaceCount()))
			} else {
				log.Info("pipeline cancelled",
					zap.Stringer("after", result.LastStep),
					zap.Int("vertices", cur.VertexCount()),
					zap.Int("faces", cur.FaceCount()))
			}
			return result, nil
		default:
		}

		if st.enabled {
			out, w, err := st.run(cur)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, w...)
			cur = out
		}
		result.LastStep = st.step
		emitter.emit(ProgressEvent{Step: st.step, Progress: st.step.Progress(), Mesh: cur})
		log.Debug("stage finished",
			zap.Stringer("step", st.step),
			zap.Bool("skipped", !st.enabled),
			zap.Float64("progress", st.step.Progress()),
			zap.Int("vertices", cur.VertexCount()),
			zap.Int("faces", cur.FaceCount()))
	}

	result.Mesh = cur
	result.Completed = true
	result.LastStep = STEP_COMPLETE
	result.Warnings = warnings
	emitter.emit(ProgressEvent{Step: STEP_COMPLETE, Progress: STEP_COMPLETE.Progress(), Mesh: cur})
	log.Info("pipeline complete",
		zap.Int("vertices", cur.VertexCount()),
		zap.Int("faces", cur.FaceCount()),
		zap.Int("warnings", len(warnings)))
	return result, nil
}
