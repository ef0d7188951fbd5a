package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"navstat/report"
	"navstat/stats"
)

func sample() *Table {
	t := New("Sample", "Name", "Total Time", "Mean")
	t.Add("gemm kernel", int64(1234567), 2.5)
	t.Add("axpy", int64(12), nil)
	return t
}

func format(t *testing.T, spec string) string {
	opts, err := ParseFormatOptions(spec)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	FormatData(&buf, sample(), opts)
	return buf.String()
}

func TestParseFormatOptions(t *testing.T) {
	opts, err := ParseFormatOptions("")
	if err != nil || opts.Format != FormatFixed || !opts.Header {
		t.Fatal("Expected fixed with header")
	}
	opts, _ = ParseFormatOptions("csv")
	if opts.Header {
		t.Fatal("csv has no header by default")
	}
	opts, _ = ParseFormatOptions("awk,header,tag:run1")
	if opts.Format != FormatAwk || !opts.Header || opts.Tag != "run1" {
		t.Fatalf("Bad options %v", opts)
	}
	if _, err := ParseFormatOptions("csv,json"); err == nil {
		t.Fatal("Expected conflict")
	}
	if _, err := ParseFormatOptions("xml"); err == nil {
		t.Fatal("Expected unknown attribute")
	}
}

func TestFixed(t *testing.T) {
	expect := `Sample

Name         Total Time  Mean
gemm kernel  1,234,567   2.50
axpy         12          -

`
	if s := format(t, "fixed"); s != expect {
		t.Fatalf("Got\n%s", s)
	}
}

func TestCsv(t *testing.T) {
	expect := "Name,Total Time,Mean\ngemm kernel,1234567,2.5\naxpy,12,\n"
	if s := format(t, "csv,header"); s != expect {
		t.Fatalf("Got %q", s)
	}
}

func TestJson(t *testing.T) {
	expect := `[{"Name":"gemm kernel","Total Time":"1234567","Mean":"2.5"},{"Name":"axpy","Total Time":"12","Mean":""}]` + "\n"
	if s := format(t, "json"); s != expect {
		t.Fatalf("Got %q", s)
	}
}

func TestAwk(t *testing.T) {
	expect := "gemm_kernel 1234567 2.5 x\naxpy 12 . x\n"
	if s := format(t, "awk,tag:x"); s != expect {
		t.Fatalf("Got %q", s)
	}
}

func TestMarkdownHtml(t *testing.T) {
	md := format(t, "markdown")
	if !strings.Contains(md, "| gemm kernel | 1,234,567 | 2.50 |") {
		t.Fatalf("Got %s", md)
	}
	html := format(t, "html")
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<td>axpy</td>") {
		t.Fatalf("Got %s", html)
	}
}

func TestQuoteJson(t *testing.T) {
	if s := QuoteJson("a\"b\\c\nd"); s != `a\"b\\c d` {
		t.Fatalf("Got %s", s)
	}
}

func makeTree() *report.Tree {
	tree := report.NewTree()
	c := report.NewCategory(report.Kernel)
	c.Entities["1"] = &report.Entity{
		Key: "1", Name: "gemm", TimePercent: 100, TimeTotal: 30, Instance: 3,
		Metrics: map[string]*stats.Block{report.ExecutionDuration: stats.ComputeStatistics([]float64{5, 10, 15}, true)},
	}
	c.Rollups[report.ExecutionDuration] = stats.ComputeStatistics([]float64{5, 10, 15}, false)
	tree.Categories[report.Kernel] = c
	tree.Summarize()
	return tree
}

func TestSummaries(t *testing.T) {
	tree := makeTree()
	o := Overall(tree)
	if len(o.Rows) != 1 || o.Rows[0][1] != 100.0 || o.Rows[0][2] != int64(30) {
		t.Fatalf("Bad overall %v", o.Rows)
	}
	g := General(tree, report.Kernel)
	if len(g.Rows) != 1 || g.Rows[0][1] != 10.0 {
		t.Fatalf("Bad general %v", g.Rows)
	}
	m := MetricSummary(tree, report.Kernel, report.LaunchOverhead)
	if len(m.Rows) != 1 || m.Rows[0][4] != nil {
		t.Fatalf("Expected missing stats, got %v", m.Rows)
	}
	i := Individual(report.Kernel, tree.Category(report.Kernel).Entities["1"])
	if len(i.Rows) != 3 || i.Title != "Kernel gemm" {
		t.Fatalf("Bad individual %v", i)
	}
	if len(General(tree, report.Transfer).Rows) != 0 {
		t.Fatal("Expected empty table for absent category")
	}
}

func TestCombined(t *testing.T) {
	coll := report.NewCollection()
	coll.Add("a", makeTree())
	coll.Add("b", makeTree())
	if n := len(CombinedTotals(coll, report.Kernel).Rows); n != 2 {
		t.Fatalf("Expected 2 rows, got %d", n)
	}
	cm := CombinedMetric(coll, report.Kernel, report.ExecutionDuration)
	if len(cm.Rows) != 2 || cm.Rows[1][1] != int64(3) {
		t.Fatalf("Bad combined metric %v", cm.Rows)
	}
	ce := CombinedEntity(coll, report.Kernel, "gemm", report.ExecutionDuration)
	if len(ce.Rows) != 2 {
		t.Fatal("Bad combined entity")
	}
	var buf bytes.Buffer
	opts, _ := ParseFormatOptions("fixed")
	FormatData(&buf, CombinedDuration(coll), opts)
	if !strings.Contains(buf.String(), "a      -") {
		t.Fatalf("Got %s", buf.String())
	}
}

func transferTree(pairs ...[2]float64) *report.Tree {
	var sizes []float64
	for _, p := range pairs {
		sizes = append(sizes, p[0])
	}
	d := stats.BuildHistogram(sizes, stats.Options{Bins: 4, PowerOfTwo: true})
	tree := report.NewTree()
	c := report.NewCategory(report.Transfer)
	c.Entities["Host-to-Device"] = &report.Entity{
		Key: "Host-to-Device", Name: "Host-to-Device", TimePercent: 100, TimeTotal: 10, Instance: int64(len(pairs)),
		Metrics:   map[string]*stats.Block{report.TransferSize: stats.ComputeStatistics(sizes, true)},
		Bandwidth: stats.PairByBucket(d, pairs),
	}
	c.Bandwidth = c.Entities["Host-to-Device"].Bandwidth
	tree.Categories[report.Transfer] = c
	tree.Summarize()
	return tree
}

func TestCombinedBandwidth(t *testing.T) {
	coll := report.NewCollection()
	coll.Add("a", transferTree([2]float64{1024, 100}, [2]float64{2048, 300}))
	coll.Add("b", transferTree([2]float64{1024, 50}, [2]float64{4096, 50}, [2]float64{4096, 80}))
	cb := CombinedBandwidth(coll)
	if len(cb.Rows) != 2 || cb.Rows[0][0] != "a" || cb.Rows[0][1] != int64(2) || cb.Rows[0][2] != 200.0 {
		t.Fatalf("Bad combined bandwidth %v", cb.Rows)
	}
	if cb.Rows[1][1] != int64(3) || cb.Rows[1][4] != 50.0 {
		t.Fatalf("Traces must be pooled separately: %v", cb.Rows)
	}
	ce := CombinedEntityBandwidth(coll, "Host-to-Device")
	if len(ce.Rows) != 2 || ce.Rows[1][4] != int64(3) || ce.Rows[1][8] != 80.0 {
		t.Fatalf("Bad entity bandwidth %v", ce.Rows)
	}
	if len(CombinedEntityBandwidth(coll, "Memset").Rows) != 0 {
		t.Fatal("Expected no rows for an absent transfer")
	}
}

func TestWorkbook(t *testing.T) {
	w, err := NewWorkbook()
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := w.Add(sample()); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Add(New("Kernel Statistics: Execution Duration: Combined", "x")); err != nil {
		t.Fatal(err)
	}
	sheets := w.Sheets()
	if len(sheets) != 3 || sheets[0] != "Sample" || sheets[1] != "Sample (2)" || len(sheets[2]) != 31 {
		t.Fatalf("Bad sheets %v", sheets)
	}
	if err := w.SaveAs(filepath.Join(t.TempDir(), "tables.xlsx")); err != nil {
		t.Fatal(err)
	}
}
