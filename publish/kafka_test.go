package publish

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"

	"navstat/report"
	"navstat/stats"
)

type fakeProducer struct {
	records []*kgo.Record
	fail    error
	closed  bool
}

func (f *fakeProducer) ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.fail})
	}
	return results
}

func (f *fakeProducer) Close() {
	f.closed = true
}

func makeCollection() *report.Collection {
	coll := report.NewCollection()
	for _, label := range []string{"base", "opt"} {
		tree := report.NewTree()
		c := report.NewCategory(report.Communication)
		c.Entities["mpi:send"] = &report.Entity{
			Key:       "mpi:send",
			Name:      "mpi:send",
			TimeTotal: 40,
			Instance:  4,
			Metrics: map[string]*stats.Block{
				report.ExecutionDuration: stats.ComputeStatistics([]float64{10, 10, 10, 10}, true),
			},
		}
		tree.Categories[report.Communication] = c
		tree.Summarize()
		coll.Add(label, tree)
	}
	return coll
}

func TestPublish(t *testing.T) {
	fp := &fakeProducer{}
	p := NewPublisherWith(fp, "")
	if p.Topic() != DefaultTopic {
		t.Fatalf("Expected default topic, got %s", p.Topic())
	}
	if err := p.Publish(context.Background(), makeCollection()); err != nil {
		t.Fatal(err)
	}
	if len(fp.records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(fp.records))
	}
	if string(fp.records[0].Key) != "base" || string(fp.records[1].Key) != "opt" {
		t.Fatalf("Bad keys %s %s", fp.records[0].Key, fp.records[1].Key)
	}
	tree, err := report.Decode(bytes.NewReader(fp.records[1].Value), report.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	c := tree.Category(report.Communication)
	if c == nil || c.TimeTotal != 40 || c.Entities["mpi:send"] == nil {
		t.Fatalf("Bad decoded tree %v", c)
	}
	p.Close()
	if !fp.closed {
		t.Fatal("Expected producer to be closed")
	}
}

func TestPublishFailure(t *testing.T) {
	fp := &fakeProducer{fail: errors.New("broker down")}
	p := NewPublisherWith(fp, "traces")
	err := p.Publish(context.Background(), makeCollection())
	if err == nil || !errors.Is(err, fp.fail) {
		t.Fatalf("Expected broker error, got %v", err)
	}
	if fp.records[0].Topic != "traces" {
		t.Fatalf("Bad topic %s", fp.records[0].Topic)
	}
}

func TestPublishEmpty(t *testing.T) {
	fp := &fakeProducer{}
	if err := NewPublisherWith(fp, "x").Publish(context.Background(), report.NewCollection()); err != nil {
		t.Fatal(err)
	}
	if len(fp.records) != 0 {
		t.Fatal("Expected no records")
	}
}

func TestNoBroker(t *testing.T) {
	if _, err := NewPublisher("", "x"); err == nil {
		t.Fatal("Expected error")
	}
}
