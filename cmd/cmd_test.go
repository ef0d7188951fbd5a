package cmd

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"navstat/report"
	"navstat/stats"
	"navstat/status"
)

type testCommand struct {
	DevArgs
	LoggingArgs
	FileArgs
	LabelArgs
	FormatArgs
	Selection
}

func (tc *testCommand) Summary(out io.Writer) {
	io.WriteString(out, "Test command.\n")
}

func (tc *testCommand) RestName() string {
	return "report"
}

func (tc *testCommand) Add(fs *CLI) {
	tc.DevArgs.Add(fs)
	tc.LoggingArgs.Add(fs)
	tc.LabelArgs.Add(fs)
	tc.FormatArgs.Add(fs)
	tc.Selection.Add(fs)
}

func (tc *testCommand) Validate() error {
	return tc.FormatArgs.Validate()
}

func (tc *testCommand) Perform(context.Context, io.Reader, io.Writer, io.Writer) error {
	return nil
}

func TestUsageGroups(t *testing.T) {
	var out strings.Builder
	flag.CommandLine.SetOutput(&out)
	defer flag.CommandLine.SetOutput(os.Stderr)
	tc := new(testCommand)
	fs := NewCLI("test", tc, "navstat", false)
	tc.Add(fs)
	fs.Usage()
	text := out.String()
	if !strings.HasPrefix(text, "Usage: navstat test [options] report ...\n") {
		t.Fatalf("Bad usage line in\n%s", text)
	}
	ds := strings.Index(text, "data-source options:")
	o := strings.Index(text, "output options:")
	d := strings.Index(text, "development options:")
	if ds < 0 || o < ds || d < o {
		t.Fatalf("Groups missing or out of order in\n%s", text)
	}
	if !strings.Contains(text[d:], "-log-json") || strings.Contains(text[d:], "-labels") {
		t.Fatalf("Options in wrong group in\n%s", text)
	}
}

func TestGroupRequired(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic")
		}
	}()
	fs := NewCLI("test", new(testCommand), "navstat", false)
	var b bool
	fs.BoolVar(&b, "x", false, "x")
}

func TestLabels(t *testing.T) {
	var la LabelArgs
	if err := la.Resolve([]string{"a/run1_parsed_stats.nav", "b/run2.sqlite"}, false); err != nil {
		t.Fatal(err)
	}
	if la.Labels[0] != "run1" || la.Labels[1] != "run2" {
		t.Fatalf("Bad default labels %v", la.Labels)
	}
	if err := la.Resolve([]string{"a", "b"}, true); err == nil {
		t.Fatal("Expected labels to be required")
	}
	la.labelSpec = "x, y"
	if err := la.Resolve([]string{"a", "b"}, true); err != nil || la.Labels[1] != "y" {
		t.Fatalf("Bad labels %v %v", la.Labels, err)
	}
	if err := la.Resolve([]string{"a"}, true); err == nil {
		t.Fatal("Expected count mismatch")
	}
	la.labelSpec = "x,,y"
	if err := la.Resolve([]string{"a", "b", "c"}, false); err == nil {
		t.Fatal("Expected empty label error")
	}
	if labelOf("postgres://db.example.org/trace7?sslmode=disable") != "trace7" {
		t.Fatalf("Bad URI label %s", labelOf("postgres://db.example.org/trace7?sslmode=disable"))
	}
}

func TestRequireFiles(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "x.nav")
	os.WriteFile(fn, []byte("{}"), 0644)
	fa := FileArgs{Files: []string{fn, "postgres://h/db"}}
	if err := fa.RequireFiles(); err != nil {
		t.Fatal(err)
	}
	fa.Files = append(fa.Files, filepath.Join(dir, "y.nav"))
	if err := fa.RequireFiles(); err == nil {
		t.Fatal("Expected missing file")
	}
}

func TestLoggingLevel(t *testing.T) {
	la := LoggingArgs{Verbose: true}
	if la.Level() != status.LogLevelInfo {
		t.Fatal("Expected info")
	}
	la.Debug = true
	if la.Level() != status.LogLevelDebug {
		t.Fatal("Expected debug")
	}
}

func makeCollection() *report.Collection {
	coll := report.NewCollection()
	for i, label := range []string{"base", "opt"} {
		tree := report.NewTree()
		c := report.NewCategory(report.Communication)
		total := int64(40 - 20*i)
		c.Entities["mpi:send"] = &report.Entity{
			Key:         "mpi:send",
			Name:        "mpi:send",
			TimePercent: 100,
			TimeTotal:   total,
			Instance:    2,
			Metrics: map[string]*stats.Block{
				report.ExecutionDuration: stats.ComputeStatistics([]float64{float64(total) / 2, float64(total) / 2}, true),
			},
		}
		c.Rollups[report.ExecutionDuration] = stats.ComputeStatistics([]float64{float64(total) / 2}, false)
		tree.Categories[report.Communication] = c
		tree.Summarize()
		coll.Add(label, tree)
	}
	return coll
}

func TestPrinting(t *testing.T) {
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	fa := FormatArgs{Fmt: "csv,header", Xlsx: xlsx}
	if err := fa.Validate(); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	p, err := fa.NewPrinter(&out)
	if err != nil {
		t.Fatal(err)
	}
	coll := makeCollection()
	if err := PrintTree(p, "base", coll.Get("base"), Selection{}); err != nil {
		t.Fatal(err)
	}
	if err := PrintComparison(p, coll, Selection{NoIndividual: true}); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, s := range []string{
		"Communication Statistics,100,40,2\n",
		"Metric,Mean,Median,Minimum,Maximum,Standard Deviation\n",
		"base,40,2,40,100\n",
		"opt,20,2,20,100\n",
	} {
		if !strings.Contains(text, s) {
			t.Fatalf("Missing %q in\n%s", s, text)
		}
	}
	if strings.Contains(text, "mpi:send: Execution Duration") {
		t.Fatal("Individual comparison tables should be suppressed")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsx); err != nil {
		t.Fatal(err)
	}
}

func TestNoOutput(t *testing.T) {
	fa := FormatArgs{NoOutput: true}
	if err := fa.Validate(); err != nil {
		t.Fatal(err)
	}
	p, err := fa.NewPrinter(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := PrintTree(p, "", makeCollection().Get("opt"), Selection{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCollection(t *testing.T) {
	dir := t.TempDir()
	coll := makeCollection()
	var files []string
	for _, label := range coll.Labels {
		fn := filepath.Join(dir, label+report.NavSuffix)
		if err := report.Save(fn, coll.Get(label)); err != nil {
			t.Fatal(err)
		}
		files = append(files, fn)
	}
	loaded, err := LoadCollection(files, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Get("b").RelativeTimeTotal != 20 {
		t.Fatalf("Bad reloaded tree")
	}
	if _, err := LoadCollection(files, []string{"a", "a"}); err == nil {
		t.Fatal("Expected duplicate label error")
	}
	if _, err := LoadCollection(files, []string{"a"}); err == nil {
		t.Fatal("Expected count error")
	}
}

func TestPrintBandwidth(t *testing.T) {
	coll := report.NewCollection()
	for i, label := range []string{"base", "opt"} {
		pairs := [][2]float64{{1024, 100}, {2048, float64(300 * (i + 1))}}
		sizes := []float64{1024, 2048}
		tree := report.NewTree()
		c := report.NewCategory(report.Transfer)
		c.Entities["Host-to-Device"] = &report.Entity{
			Key:         "Host-to-Device",
			Name:        "Host-to-Device",
			TimePercent: 100,
			TimeTotal:   10,
			Instance:    2,
			Metrics:     map[string]*stats.Block{report.TransferSize: stats.ComputeStatistics(sizes, true)},
			Bandwidth:   stats.PairByBucket(stats.BuildHistogram(sizes, stats.DefaultOptions), pairs),
		}
		tree.Categories[report.Transfer] = c
		tree.Summarize()
		coll.Add(label, tree)
	}
	fa := FormatArgs{Fmt: "csv,header"}
	if err := fa.Validate(); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	p, err := fa.NewPrinter(&out)
	if err != nil {
		t.Fatal(err)
	}
	if err := PrintComparison(p, coll, Selection{}); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, s := range []string{
		"Label,Total Time (%),Total Time,Instances,Samples,Mean,Median,Minimum,Maximum,Standard Deviation\n",
		"base,100,10,2,2,200,200,100,300,100\n",
		"opt,100,10,2,2,350,350,100,600,250\n",
		"base,2,200,200,100,300,100\n",
		"opt,2,350,350,100,600,250\n",
	} {
		if !strings.Contains(text, s) {
			t.Fatalf("Missing %q in\n%s", s, text)
		}
	}

	out.Reset()
	if err := PrintComparison(p, coll, Selection{NoGeneral: true, NoIndividual: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "base,2,200") {
		t.Fatal("Bandwidth comparison tables should be suppressed")
	}
}
