package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	sarama "github.com/IBM/sarama"
)

// KafkaForwarder republishes bus events onto a Kafka topic.
type KafkaForwarder[K comparable] struct {
	client    sarama.Client
	producer  sarama.SyncProducer
	topic     string
	cancel    context.CancelFunc
	done      chan struct{}
	forwarded atomic.Uint64
	failed    atomic.Uint64
}

// ForwardKafka connects to brokers and republishes every event on bus,
// JSON-encoded, to topic. Close stops the forwarder and releases the
// connection.
func ForwardKafka[K comparable](bus Bus[K], brokers []string, cfg *sarama.Config, topic string) (*KafkaForwarder[K], error) {
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.WatchAll(ctx)
	if err != nil {
		cancel()
		_ = producer.Close()
		_ = client.Close()
		return nil, err
	}
	f := &KafkaForwarder[K]{
		client:   client,
		producer: producer,
		topic:    topic,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go f.pump(ch)
	return f, nil
}

func (f *KafkaForwarder[K]) pump(ch chan Event[K]) {
	defer close(f.done)
	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			f.failed.Add(1)
			continue
		}
		msg := &sarama.ProducerMessage{Topic: f.topic, Value: sarama.ByteEncoder(data)}
		if _, _, err := f.producer.SendMessage(msg); err != nil {
			f.failed.Add(1)
			slog.Warn("keep: kafka forward failed", "topic", f.topic, "err", err)
			continue
		}
		f.forwarded.Add(1)
	}
}

// Metrics returns the forwarded and failed event counts.
func (f *KafkaForwarder[K]) Metrics() ForwarderStats {
	return ForwarderStats{
		Forwarded: f.forwarded.Load(),
		Failed:    f.failed.Load(),
	}
}

// Close detaches the forwarder from its bus, waits for the pump to
// drain, and closes the Kafka connection.
func (f *KafkaForwarder[K]) Close() {
	f.cancel()
	<-f.done
	_ = f.producer.Close()
	_ = f.client.Close()
}

// WatchKafka consumes topic from its newest offset and returns a
// channel of decoded events. The channel closes after the context is
// canceled; payloads that do not decode as events are dropped.
func WatchKafka[K comparable](ctx context.Context, brokers []string, cfg *sarama.Config, topic string) (chan Event[K], error) {
	consumer, err := sarama.NewConsumer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	pc, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		_ = consumer.Close()
		return nil, err
	}
	out := make(chan Event[K], subscriberBuffer)
	go func() {
		<-ctx.Done()
		_ = pc.Close()
	}()
	go func() {
		defer close(out)
		defer func() { _ = consumer.Close() }()
		for m := range pc.Messages() {
			var ev Event[K]
			if err := json.Unmarshal(m.Value, &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()
	return out, nil
}
