// Building report trees from traces.
//
// For each requested category whose tables are present: enumerate the entities on one connection,
// then fetch and derive every entity as a task on the pool (each task on its own connection), then
// compute the category rollups.  The tree is assembled here, on the calling goroutine, from the
// task results.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"navstat/db"
	"navstat/engine"
	"navstat/extract"
	"navstat/report"
	"navstat/rollup"

	. "navstat/common"
)

type Options struct {
	// Categories to extract, in order
	Kinds []report.Kind

	Rollup rollup.Options
}

type Builder struct {
	pool *engine.Pool
	opts Options
}

func NewBuilder(pool *engine.Pool, opts Options) *Builder {
	return &Builder{pool: pool, opts: opts}
}

// BuildTrace fails only if the trace store cannot be used at all.  Missing tables skip a category,
// failing entities are logged and kept without metrics.

func (b *Builder) BuildTrace(ctx context.Context, src db.Source) (*report.Tree, error) {
	Log.Infof("Starting extraction and creation of statistics from %s", src.Name())
	conn, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tree := report.NewTree()
	for _, kind := range b.opts.Kinds {
		Log.Infof("Starting %s", kind.CategoryKey())
		ex := extract.For(kind)
		missing, err := db.MissingTables(ctx, conn, ex.RequiredTables())
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			Log.Warningf(
				"Skipping %s for %s, missing tables: %s",
				kind.CategoryKey(), src.Name(), strings.Join(missing, ", "))
			continue
		}
		c, err := b.buildCategory(ctx, src, conn, ex)
		if err != nil {
			return nil, err
		}
		tree.Categories[kind] = c
	}

	d, err := db.TotalDuration(ctx, conn)
	switch {
	case err == nil:
		tree.TotalDuration = &d
	case errors.Is(err, db.ErrNoTable):
		Log.Infof("No total duration for %s", src.Name())
	default:
		Log.Warningf("Could not read total duration for %s: %v", src.Name(), err)
	}

	tree.Summarize()
	return tree, nil
}

func (b *Builder) buildCategory(
	ctx context.Context,
	src db.Source,
	conn db.Conn,
	ex extract.Extractor,
) (*report.Category, error) {
	kind := ex.Kind()
	Log.Infof("Getting general %s information", kind)
	entities, err := ex.Enumerate(ctx, conn)
	if err != nil {
		return nil, err
	}

	Log.Infof("Getting raw data and generating statistics for %d %ss", len(entities), kind)
	tasks := make([]engine.Task[string, *extract.Derived], 0, len(entities))
	for _, e := range entities {
		tasks = append(tasks, engine.Task[string, *extract.Derived]{
			Key: e.Key,
			Run: func(ctx context.Context) (*extract.Derived, error) {
				return fetchAndDerive(ctx, src, ex, e.Key)
			},
		})
	}
	derived, err := engine.Run(ctx, b.pool, kind.String(), tasks)
	for _, failure := range multierr.Errors(err) {
		Log.Errorf("%s: %v", kind, failure)
	}

	c := report.NewCategory(kind)
	for _, e := range entities {
		if d := derived[e.Key]; d != nil {
			e.Metrics = d.Metrics
			e.Bandwidth = d.Bandwidth
		}
		c.Entities[e.Key] = e
	}
	// Rollup failures are logged by the rollup and leave the metric out.
	rollup.Category(ctx, b.pool, c, b.opts.Rollup)
	c.Summarize()
	return c, nil
}

func fetchAndDerive(
	ctx context.Context,
	src db.Source,
	ex extract.Extractor,
	key string,
) (*extract.Derived, error) {
	conn, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	records, err := ex.FetchRaw(ctx, conn, key)
	if err != nil {
		return nil, err
	}
	return ex.Derive(records), nil
}

// BuildAll builds one tree per source, labelled by the corresponding label.  A failure on any
// trace fails the whole run.

func (b *Builder) BuildAll(ctx context.Context, sources []db.Source, labels []string) (*report.Collection, error) {
	if len(sources) != len(labels) {
		return nil, fmt.Errorf("Expected one label per trace, got %d labels for %d traces", len(labels), len(sources))
	}
	coll := report.NewCollection()
	for i, src := range sources {
		tree, err := b.BuildTrace(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("Failed to process %s: %w", src.Name(), err)
		}
		if err := coll.Add(labels[i], tree); err != nil {
			return nil, err
		}
	}
	return coll, nil
}
