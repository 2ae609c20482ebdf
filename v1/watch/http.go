package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// The HTTP surface is string-keyed: handlers serve buses whose key type
// is string, such as the one behind cmd/keep-proxy.

func watchFromRequest(r *http.Request, bus Bus[string]) (context.CancelFunc, chan Event[string], func(), error) {
	key := r.URL.Query().Get("key")
	ctx, cancel := context.WithCancel(r.Context())
	var (
		ch  chan Event[string]
		err error
	)
	if key == "" {
		ch, err = bus.WatchAll(ctx)
	} else {
		ch, err = bus.Watch(ctx, key)
	}
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	unwatch := func() {
		if key == "" {
			_ = bus.UnwatchAll(context.Background(), ch)
		} else {
			_ = bus.Unwatch(context.Background(), key, ch)
		}
	}
	return cancel, ch, unwatch, nil
}

// SSEHandler streams removal events over Server-Sent Events. The "key"
// query parameter selects a single key; without it every event is
// streamed. Each event is one JSON-encoded data line.
func SSEHandler(bus Bus[string]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cancel, ch, unwatch, err := watchFromRequest(r, bus)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() {
			cancel()
			unwatch()
		}()
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "stream unsupported", http.StatusInternalServerError)
			return
		}
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{}

// WebSocketHandler streams removal events over WebSocket, one
// JSON-encoded event per text message. The "key" query parameter
// selects a single key; without it every event is streamed.
func WebSocketHandler(bus Bus[string]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		cancel, ch, unwatch, err := watchFromRequest(r, bus)
		if err != nil {
			return
		}
		defer func() {
			cancel()
			unwatch()
		}()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
