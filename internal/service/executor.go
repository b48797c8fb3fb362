package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/generation"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/queue"
)

// Executor runs generation commands against the engine. It backs both the
// in-process dispatcher and the queue worker.
type Executor struct {
	engine   *generation.Engine
	projects generation.ProjectStore
}

// NewExecutor creates an executor.
func NewExecutor(engine *generation.Engine, projects generation.ProjectStore) *Executor {
	return &Executor{engine: engine, projects: projects}
}

// Execute runs cmd to completion. The generation flags of the projects a text
// command targets are cleared when it returns, including on early failures.
func (e *Executor) Execute(ctx context.Context, cmd queue.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	ctx = logger.WithField(ctx, logger.FieldCommandID, cmd.ID)
	if cmd.ProjectID != 0 {
		ctx = logger.SetProjectID(ctx, cmd.ProjectID)
	}
	if cmd.Kind != queue.KindImages {
		defer e.release(cmd)
	}

	switch cmd.Kind {
	case queue.KindStructure:
		var err error
		if cmd.BatchID != "" {
			ctx = logger.SetBatchID(ctx, cmd.BatchID)
			_, err = e.engine.Structure.GenerateBatch(ctx, cmd.BatchID, cmd.Instructions)
		} else {
			_, err = e.engine.Structure.GenerateGroup(ctx, cmd.ProjectIDs, cmd.Instructions)
		}
		return err

	case queue.KindScript:
		ids := cmd.ProjectIDs
		if len(ids) == 0 {
			ids = []int64{cmd.ProjectID}
		}
		_, err := e.engine.Script.GenerateMany(ctx, ids, cmd.Instructions)
		return err

	case queue.KindRegenerate:
		_, err := e.engine.Regenerate.RegenerateAll(ctx, cmd.ProjectID, cmd.Instructions)
		return err

	case queue.KindRegenerateSection:
		_, err := e.engine.Regenerate.RegenerateSection(ctx, cmd.ProjectID, cmd.Index, cmd.Instructions)
		return err

	case queue.KindRefine:
		return e.refine(ctx, cmd)

	case queue.KindImages:
		if e.engine.Images == nil {
			return fmt.Errorf("%w: image generation is not configured", domain.ErrValidationFailed)
		}
		_, err := e.engine.Images.Run(ctx, cmd.ProjectID, generation.ImageRequest{
			SourceText:   cmd.Image.SourceText,
			Instructions: cmd.Image.Instructions,
			Quantity:     cmd.Image.Quantity,
			AspectRatio:  cmd.Image.AspectRatio,
		})
		return err
	}
	return fmt.Errorf("%w: unknown command kind %q", domain.ErrValidationFailed, cmd.Kind)
}

// refine rewrites the project structure together with its structure group.
func (e *Executor) refine(ctx context.Context, cmd queue.Command) error {
	_, err := e.engine.Refine.Refine(ctx, cmd.ProjectID, cmd.Instructions)
	return err
}

// release clears the generation flags of every project cmd targets. A refinement
// also covers the structure group of its project.
func (e *Executor) release(cmd queue.Command) {
	var ids []int64
	switch {
	case cmd.BatchID != "":
		for _, p := range e.projects.ListBatch(cmd.BatchID) {
			ids = append(ids, p.ID)
		}
	case len(cmd.ProjectIDs) > 0:
		ids = cmd.ProjectIDs
	default:
		ids = []int64{cmd.ProjectID}
		if cmd.Kind == queue.KindRefine {
			if p, err := e.projects.Get(cmd.ProjectID); err == nil {
				ids = generation.GroupMembers(e.projects.ListBatch(p.BatchID), p)
			}
		}
	}
	e.projects.ReplaceAll(memberOf(ids), clearFlags)
}

// Dispatcher hands commands to whatever executes them.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd queue.Command) error
}

// LocalDispatcher executes commands in background goroutines of this process.
type LocalDispatcher struct {
	exec *Executor
	wg   sync.WaitGroup
}

// NewLocalDispatcher creates a dispatcher around exec.
func NewLocalDispatcher(exec *Executor) *LocalDispatcher {
	return &LocalDispatcher{exec: exec}
}

// Dispatch validates cmd and starts it. The command outlives the caller's context.
func (d *LocalDispatcher) Dispatch(ctx context.Context, cmd queue.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.exec.Execute(bg, cmd); err != nil {
			logger.CtxWarn(bg, "Command %s for %s finished with errors: %v", cmd.Kind, cmd.Target(), err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched command has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
