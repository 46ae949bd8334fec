package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// Regenerator rewrites the list files of a farm.
type Regenerator interface {
	Regenerate(ctx context.Context, farm string) error
}

// RegenerateWorker runs list regeneration jobs. A failed run is retried by
// River; the previous list files stay in place meanwhile.
type RegenerateWorker struct {
	river.WorkerDefaults[RegenerateArgs]
	generator Regenerator
	logger    *slog.Logger
}

// Work processes a single regeneration job.
func (w *RegenerateWorker) Work(ctx context.Context, job *river.Job[RegenerateArgs]) error {
	w.logger.DebugContext(ctx, "regenerating lists",
		"farm", job.Args.Farm,
		"event", job.Args.Event,
		"wiki", job.Args.Wiki,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return w.generator.Regenerate(ctx, job.Args.Farm)
}
