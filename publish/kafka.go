// Publication of finished report trees to a Kafka topic.  One record per trace, keyed by the trace
// label, with the NAV (JSON) encoding of the tree as the value.  Consumers can rebuild the tree with
// report.Decode.

package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	. "navstat/common"
	"navstat/report"
)

const DefaultTopic = "navstat-reports"

// The part of *kgo.Client we use.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type Publisher struct {
	topic    string
	producer Producer
}

func NewPublisher(broker, topic string) (*Publisher, error) {
	if broker == "" {
		return nil, errors.New("Kafka broker address required")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerBatchCompression(kgo.ZstdCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("Failed to create Kafka client for %s: %w", broker, err)
	}
	return NewPublisherWith(cl, topic), nil
}

func NewPublisherWith(producer Producer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{topic: topic, producer: producer}
}

func (p *Publisher) Topic() string {
	return p.topic
}

// Records builds the records for the collection, in label order.

func (p *Publisher) Records(coll *report.Collection) ([]*kgo.Record, error) {
	records := make([]*kgo.Record, 0, coll.Len())
	for _, label := range coll.Labels {
		var buf bytes.Buffer
		if err := report.Encode(&buf, coll.Get(label), report.FormatJSON); err != nil {
			return nil, fmt.Errorf("Failed to encode %s: %w", label, err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(label),
			Value: buf.Bytes(),
		})
	}
	return records, nil
}

// Publish sends every tree of the collection and waits for the broker to acknowledge them.

func (p *Publisher) Publish(ctx context.Context, coll *report.Collection) error {
	records, err := p.Records(coll)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	Log.Infof("Publishing %d report(s) to %s", len(records), p.topic)
	if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("Failed to publish reports: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.producer.Close()
}
