package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	nats "github.com/nats-io/nats.go"
)

// NATSForwarder republishes bus events onto a NATS subject so watchers
// on other processes can follow a cache's removals.
type NATSForwarder[K comparable] struct {
	conn      *nats.Conn
	subject   string
	cancel    context.CancelFunc
	done      chan struct{}
	forwarded atomic.Uint64
	failed    atomic.Uint64
}

// ForwardNATS subscribes to every event on bus and republishes each
// one, JSON-encoded, to subject on conn. Close stops the forwarder.
func ForwardNATS[K comparable](bus Bus[K], conn *nats.Conn, subject string) (*NATSForwarder[K], error) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.WatchAll(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	f := &NATSForwarder[K]{
		conn:    conn,
		subject: subject,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go f.pump(ch)
	return f, nil
}

func (f *NATSForwarder[K]) pump(ch chan Event[K]) {
	defer close(f.done)
	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			f.failed.Add(1)
			continue
		}
		if err := f.conn.Publish(f.subject, data); err != nil {
			f.failed.Add(1)
			slog.Warn("keep: nats forward failed", "subject", f.subject, "err", err)
			continue
		}
		f.forwarded.Add(1)
	}
}

// Metrics returns the forwarded and failed event counts.
func (f *NATSForwarder[K]) Metrics() ForwarderStats {
	return ForwarderStats{
		Forwarded: f.forwarded.Load(),
		Failed:    f.failed.Load(),
	}
}

// Close detaches the forwarder from its bus and waits for the pump to
// drain. The NATS connection is left open for the caller.
func (f *NATSForwarder[K]) Close() {
	f.cancel()
	<-f.done
}

// WatchNATS subscribes to subject on conn and returns a channel of
// decoded events. The channel closes after the context is canceled;
// payloads that do not decode as events are dropped.
func WatchNATS[K comparable](ctx context.Context, conn *nats.Conn, subject string) (chan Event[K], error) {
	msgs := make(chan *nats.Msg, subscriberBuffer)
	sub, err := conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return nil, err
	}
	out := make(chan Event[K], subscriberBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case m := <-msgs:
				var ev Event[K]
				if err := json.Unmarshal(m.Data, &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			case <-ctx.Done():
				_ = sub.Unsubscribe()
				return
			}
		}
	}()
	return out, nil
}
