package extract

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	. "navstat/cmd"
	"navstat/report"
)

func createTrace(t *testing.T, fn string) {
	h, err := sql.Open("sqlite", fn)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	for _, stmt := range []string{
		`CREATE TABLE StringIds (id INTEGER PRIMARY KEY, value TEXT NOT NULL)`,
		`INSERT INTO StringIds VALUES (1, 'gemm'), (2, 'void gemm<float>(float*)')`,
		`CREATE TABLE CUPTI_ACTIVITY_KIND_KERNEL (
             "start" INTEGER, "end" INTEGER, shortName INTEGER, demangledName INTEGER, correlationId INTEGER)`,
		`INSERT INTO CUPTI_ACTIVITY_KIND_KERNEL VALUES (100, 110, 1, 2, 1), (200, 230, 1, 2, 2)`,
		`CREATE TABLE CUPTI_ACTIVITY_KIND_RUNTIME (
             "start" INTEGER, "end" INTEGER, eventClass INTEGER, correlationId INTEGER)`,
		`INSERT INTO CUPTI_ACTIVITY_KIND_RUNTIME VALUES (90, 95, 0, 1), (180, 190, 0, 2), (10, 20, 67, 3)`,
		`CREATE TABLE ANALYSIS_DETAILS (duration INTEGER)`,
		`INSERT INTO ANALYSIS_DETAILS VALUES (1000)`,
	} {
		if _, err := h.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
}

func parse(t *testing.T, args ...string) *ExtractCommand {
	ec := new(ExtractCommand)
	fs := NewCLI("extract", ec, "navstat", false)
	ec.Add(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	ec.SetRestArguments(fs.Args())
	if err := ec.Validate(); err != nil {
		t.Fatal(err)
	}
	return ec
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	trace := filepath.Join(dir, "run1.sqlite")
	createTrace(t, trace)
	out := filepath.Join(dir, "out")

	ec := parse(t, "-output-dir", out, "-no-communication", "-max-workers", "2", "-fmt", "csv,header", trace)
	var stdout strings.Builder
	if err := ec.Perform(context.Background(), nil, &stdout, nil); err != nil {
		t.Fatal(err)
	}

	tree, err := report.Load(filepath.Join(out, "run1", "run1_parsed_stats.nav"))
	if err != nil {
		t.Fatal(err)
	}
	if tree.TotalDuration == nil || *tree.TotalDuration != 1000 {
		t.Fatalf("Bad total duration %v", tree.TotalDuration)
	}
	if tree.Category(report.Transfer) != nil {
		t.Fatal("Transfer tables are missing, category should be skipped")
	}
	k := tree.Category(report.Kernel)
	if k == nil || k.TimeTotal != 40 || k.Instance != 2 {
		t.Fatalf("Bad kernel category %v", k)
	}
	e := k.Entities["1"]
	if e == nil || e.Name != "gemm" || e.TimePercent != 100 {
		t.Fatalf("Bad entity %v", e)
	}
	if b := e.Block(report.ExecutionDuration); b == nil || b.Mean != 20 {
		t.Fatalf("Bad execution duration %v", b)
	}
	if b := e.Block(report.LaunchOverhead); b == nil || b.Min != 5 || b.Max != 10 {
		t.Fatalf("Bad launch overhead %v", b)
	}
	if b := k.Rollups[report.ExecutionDuration]; b == nil || b.Median != 20 {
		t.Fatalf("Bad rollup %v", b)
	}
	if !strings.Contains(stdout.String(), "Name,Total Relative Time (%),Total Time,Instances\n") {
		t.Fatalf("Missing overall table in\n%s", stdout.String())
	}
}

func TestExtractCompressed(t *testing.T) {
	dir := t.TempDir()
	trace := filepath.Join(dir, "run2.sqlite")
	createTrace(t, trace)

	ec := parse(t, "-output-dir", dir, "-labels", "base", "-cbor", "-compress", "zstd", "-no-output",
		"-no-transfer", "-no-communication", trace)
	fn := ec.ReportPath(trace, "base")
	if fn != filepath.Join(dir, "base", "run2_parsed_stats.cbor.zst") {
		t.Fatalf("Bad report path %s", fn)
	}
	if err := ec.Perform(context.Background(), nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	tree, err := report.Load(fn)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Category(report.Kernel).Entities["1"].Instance != 2 {
		t.Fatal("Bad reloaded tree")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sqlite")
	b := filepath.Join(dir, "b.sqlite")
	createTrace(t, a)
	createTrace(t, b)

	for _, args := range [][]string{
		{},
		{a, b},
		{"-labels", "x", a, b},
		{"-no-kernel", "-no-transfer", "-no-communication", a},
		{"-compress", "gzip", a},
		{filepath.Join(dir, "nope.sqlite")},
		{"-fmt", "yaml", a},
	} {
		ec := new(ExtractCommand)
		fs := NewCLI("extract", ec, "navstat", false)
		ec.Add(fs)
		if err := fs.Parse(args); err != nil {
			t.Fatal(err)
		}
		ec.SetRestArguments(fs.Args())
		if ec.Validate() == nil {
			t.Fatalf("Expected validation error for %v", args)
		}
	}

	ec := parse(t, "-labels", "x,y", a, b)
	if ec.Labels[1] != "y" || len(ec.kinds) != 3 {
		t.Fatalf("Bad labels or kinds %v %v", ec.Labels, ec.kinds)
	}
}
