// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"fmt"
	"sync"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/task"
)

// StateFunc receives the pipeline transitions: Created, Uploading, then exactly
// one of Completed or Failed.
type StateFunc func(models.PipelineState)

// Send builds a container from req and uploads it.
func (s *UploadService) Send(ctx context.Context, req UploadRequest, onState StateFunc) (*models.Container, error) {
	files, err := s.NewFiles(ctx, req.Paths...)
	if err != nil {
		return nil, err
	}

	var c *models.Container
	switch req.Kind {
	case models.KindBoard:
		c = models.NewBoard(req.Name, req.Description, files...)
	case models.KindTransfer, "":
		c = models.NewTransfer(req.Name, files...)
	default:
		return nil, apierrors.Invalid("unknown kind %q", req.Kind)
	}
	return s.Upload(ctx, c, onState)
}

// Upload creates c on the server when needed, registers its files, uploads
// every chunk and completes the container. It returns once a terminal state
// was reported; on failure c is returned too, so callers can look at which
// files made it.
func (s *UploadService) Upload(ctx context.Context, c *models.Container, onState StateFunc) (*models.Container, error) {
	if onState == nil {
		onState = func(models.PipelineState) {}
	}

	pending := c.PendingFiles()
	if len(pending) == 0 {
		onState(models.Failed(apierrors.ErrNoFilesAvailable))
		return c, apierrors.ErrNoFilesAvailable
	}
	var total int64
	for _, f := range pending {
		total += int64(f.SizeBytes())
	}
	progress := models.NewProgress(total)

	sched := task.NewScheduler(ctx, s.upload.Concurrency, s.logger)
	defer sched.Close()

	states := newStateEmitter(onState)

	create := task.New(fmt.Sprintf("create %s", c.Kind()), func(ctx context.Context) (*models.Container, error) {
		if _, ok := c.Identifier(); ok {
			return c, nil
		}
		return s.createContainer(ctx, c)
	}).OnResult(func(r task.Result[*models.Container]) {
		if !r.Failed() {
			states.emit(models.Created(c))
		}
	})

	register := task.Chain("register files", func(ctx context.Context, c *models.Container) ([]*models.File, error) {
		if _, err := s.AddFiles(ctx, c); err != nil {
			return nil, err
		}
		return c.PendingFiles(), nil
	}, task.WithValidator(requireIdentifier)).After(create)

	register.OnResult(func(r task.Result[[]*models.File]) {
		if r.Failed() {
			states.emit(models.Failed(r.Err))
			return
		}
		states.emit(models.Uploading(progress))

		final, err := s.uploadGraph(c, r.Value, progress)
		if err != nil {
			states.emit(models.Failed(err))
			return
		}
		final.OnResult(func(r task.Result[*models.Container]) {
			if r.Failed() {
				states.emit(models.Failed(r.Err))
				return
			}
			states.emit(models.Completed(c))
		})
		sched.Submit(final)
	})
	sched.Submit(register)

	st := <-states.terminal
	sched.Wait()
	if st.Err != nil {
		s.logger.Errorf("Upload of %s %q failed: %s", c.Kind(), c.Name(), st.Err)
		return c, st.Err
	}
	return c, nil
}

// stateEmitter delivers transitions one at a time and drops whatever arrives
// after the terminal state.
type stateEmitter struct {
	mu       sync.Mutex
	fn       StateFunc
	done     bool
	terminal chan models.PipelineState
}

func newStateEmitter(fn StateFunc) *stateEmitter {
	return &stateEmitter{fn: fn, terminal: make(chan models.PipelineState, 1)}
}

func (e *stateEmitter) emit(st models.PipelineState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.fn(st)
	if st.Terminal() {
		e.done = true
		e.terminal <- st
	}
}

// uploadGraph wires, per file, one url->put pair per chunk followed by the
// complete call, then joins all files into the finalize step.
func (s *UploadService) uploadGraph(c *models.Container, files []*models.File, progress *models.Progress) (*task.Task[*models.Container], error) {
	completes := make([]*task.Task[*models.File], 0, len(files))
	for _, f := range files {
		f := f
		plan, err := f.Chunks(s.upload.ChunkSize)
		if err != nil {
			return nil, err
		}
		if count, ok := f.ChunkCount(); ok && count != len(plan) {
			return nil, fmt.Errorf("%w: %s expects %d parts, planned %d", apierrors.ErrIncompleteServerData, f.DisplayName(), count, len(plan))
		}

		puts := make([]task.Node, 0, len(plan))
		for _, rng := range plan {
			rng := rng
			name := fmt.Sprintf("%s#%d", f.DisplayName(), rng.PartNumber())
			url := task.New("upload url "+name, func(ctx context.Context) (*models.Chunk, error) {
				return s.RequestUploadURL(ctx, c, f, rng)
			})
			put := task.Chain("upload chunk "+name, func(ctx context.Context, ch *models.Chunk) (*models.Chunk, error) {
				return ch, s.UploadChunk(ctx, ch, progress)
			}).After(url)
			puts = append(puts, put)
		}

		complete := task.Chain("complete "+f.DisplayName(), func(ctx context.Context, f *models.File) (*models.File, error) {
			return f, s.CompleteFile(ctx, c, f)
		}, task.WithInput(f)).After(puts...)
		completes = append(completes, complete)
	}

	all := task.Join("all files", completes...)
	return task.Chain("finalize", func(ctx context.Context, _ []*models.File) (*models.Container, error) {
		if c.Kind() == models.KindBoard {
			return c, nil
		}
		return s.FinalizeTransfer(ctx, c)
	}).After(all), nil
}
