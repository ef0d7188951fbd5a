package pipeline

import (
	"context"
	"testing"

	"navstat/db"
	"navstat/db/dbtest"
	"navstat/engine"
	"navstat/report"
	"navstat/rollup"
)

func fakeTrace() *dbtest.Source {
	return &dbtest.Source{
		Tables: map[string]bool{
			"CUPTI_ACTIVITY_KIND_KERNEL":  true,
			"CUPTI_ACTIVITY_KIND_RUNTIME": true,
			"StringIds":                   true,
			"ANALYSIS_DETAILS":            true,
		},
		Responses: []dbtest.Response{
			{
				Match: "GROUP BY 1",
				Rows: func([]any) [][]any {
					return [][]any{
						{int64(1), int64(60), int64(3), "gemm"},
						{int64(2), int64(30), int64(2), "axpy"},
						{int64(3), int64(10), int64(1), "broken"},
					}
				},
			},
			{
				Match: `k."shortName" = ?`,
				Rows: func(args []any) [][]any {
					switch args[0] {
					case int64(1):
						return [][]any{
							{int64(10), int64(2), int64(3)},
							{int64(20), int64(4), int64(5)},
							{int64(30), int64(6), int64(7)},
						}
					case int64(2):
						return [][]any{{int64(10), nil, nil}, {int64(20), int64(1), int64(1)}}
					}
					// Wrong shape, fails the scan
					return [][]any{{int64(1)}}
				},
			},
			{
				Match: `FROM "ANALYSIS_DETAILS"`,
				Rows: func([]any) [][]any {
					return [][]any{{int64(5000)}}
				},
			},
		},
	}
}

func TestBuildTrace(t *testing.T) {
	pool := engine.New(engine.Config{Workers: 3})
	defer pool.Close()
	b := NewBuilder(pool, Options{
		Kinds: []report.Kind{report.Kernel, report.Transfer, report.Communication},
	})
	src := fakeTrace()
	tree, err := b.BuildTrace(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if ks := tree.Kinds(); len(ks) != 1 || ks[0] != report.Kernel {
		t.Fatalf("Expected only kernels, got %v", ks)
	}
	if tree.TotalDuration == nil || *tree.TotalDuration != 5000 {
		t.Fatal("Expected total duration")
	}
	c := tree.Category(report.Kernel)
	if len(c.Entities) != 3 || c.TimeTotal != 100 || c.Instance != 6 || tree.RelativeTimeTotal != 100 {
		t.Fatalf("Bad category totals %d %d", c.TimeTotal, c.Instance)
	}
	gemm := c.Entities["1"]
	if gemm.TimePercent != 60 || gemm.Block(report.ExecutionDuration).Mean != 20 {
		t.Fatal("Bad gemm")
	}
	if gemm.Block(report.LaunchOverhead) == nil {
		t.Fatal("Expected launch overhead for gemm")
	}
	if c.Entities["2"].Block(report.LaunchOverhead) != nil {
		t.Fatal("Expected no launch overhead for axpy")
	}
	if c.Entities["3"].Metrics != nil {
		t.Fatal("Failed entity must not have metrics")
	}

	// Pooled over gemm and axpy only
	roll := c.Rollups[report.ExecutionDuration]
	if roll == nil || roll.Mean != 18 || len(roll.Cluster.Raw) != 2 {
		t.Fatalf("Bad rollup %v", roll)
	}
	if _, found := c.Rollups[report.LaunchOverhead]; !found {
		t.Fatal("Expected launch overhead rollup")
	}

	// One connection for the tree, one per entity
	if src.Opens() != 4 {
		t.Fatalf("Expected 4 connections, got %d", src.Opens())
	}
}

func TestBuildAll(t *testing.T) {
	pool := engine.New(engine.Config{Workers: 2})
	defer pool.Close()
	b := NewBuilder(pool, Options{Kinds: []report.Kind{report.Kernel}, Rollup: rollup.Options{RemoveOutliers: true}})
	srcs := []db.Source{fakeTrace(), fakeTrace()}
	if _, err := b.BuildAll(context.Background(), srcs, []string{"a"}); err == nil {
		t.Fatal("Expected label count error")
	}
	coll, err := b.BuildAll(context.Background(), srcs, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if coll.Len() != 2 || coll.Get("b").Category(report.Kernel) == nil {
		t.Fatal("Bad collection")
	}
}

func TestStoreFailure(t *testing.T) {
	pool := engine.New(engine.Config{Workers: 1})
	defer pool.Close()
	src := fakeTrace()
	src.Responses = src.Responses[1:]
	b := NewBuilder(pool, Options{Kinds: []report.Kind{report.Kernel}})
	if _, err := b.BuildTrace(context.Background(), src); err == nil {
		t.Fatal("Expected enumeration failure to be fatal")
	}
}
