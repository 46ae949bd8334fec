package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Options configures the River client.
type Options struct {
	Generator Regenerator
	Logger    *slog.Logger
	// Farms get a periodic regeneration job every Interval, the first one
	// when the client starts. A zero Interval schedules nothing.
	Farms    []string
	Interval time.Duration
}

// Setup creates a River client with the regeneration worker registered and
// runs River's internal migrations. The caller must call client.Start() to
// begin processing jobs and client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	driver := riversqlite.New(db)

	// River's own tables are separate from the goose-managed registry.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &RegenerateWorker{generator: opts.Generator, logger: logger})

	client, err := river.NewClient(driver, &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			// One worker: regenerations of the same farm must not interleave.
			river.QueueDefault: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: periodicJobs(opts.Farms, opts.Interval),
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}

func periodicJobs(farms []string, interval time.Duration) []*river.PeriodicJob {
	if interval <= 0 {
		return nil
	}
	jobs := make([]*river.PeriodicJob, 0, len(farms))
	for _, farm := range farms {
		jobs = append(jobs, river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RegenerateArgs{Farm: farm, Event: "periodic"}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}
	return jobs
}
