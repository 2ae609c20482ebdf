package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/hashicorp/go-uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirkobrombin/go-keep/v1/cache"
	"github.com/mirkobrombin/go-keep/v1/metrics"
	"github.com/mirkobrombin/go-keep/v1/watch"
)

var (
	port     = flag.Int("port", 6380, "Port to listen on")
	addr     = flag.String("addr", "0.0.0.0", "Address to listen on")
	capacity = flag.Int("capacity", 10000, "Maximum number of cached entries")
	httpAddr = flag.String("http", "", "Address to serve metrics and removal events on (disabled when empty)")
)

type server struct {
	cache *cache.LRUCache[string, []byte]
	runID string
}

func main() {
	flag.Parse()

	runID, err := uuid.GenerateUUID()
	if err != nil {
		log.Fatalf("failed to generate run id: %v", err)
	}

	opts := []cache.Option[string, []byte]{}
	if *httpAddr != "" {
		reg := metrics.NewRegistry()
		metrics.RegisterCoreMetrics(reg)
		bus := watch.NewInMemoryBus[string]()
		opts = append(opts,
			cache.WithMetrics[string, []byte](reg),
			cache.WithEvents[string, []byte](bus),
		)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/events", watch.SSEHandler(bus))
		mux.Handle("/events/ws", watch.WebSocketHandler(bus))
		go func() {
			log.Printf("keep-proxy http endpoint on %s", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, mux); err != nil {
				log.Printf("http endpoint: %v", err)
			}
		}()
	}

	c, err := cache.New[string, []byte](*capacity, opts...)
	if err != nil {
		log.Fatalf("failed to create cache: %v", err)
	}

	srv := &server{cache: c, runID: runID}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", *addr, *port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()

	log.Printf("keep-proxy listening on %s:%d (capacity %d, run_id %s)", *addr, *port, *capacity, runID)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("failed to accept: %v", err)
			continue
		}
		go srv.handle(conn)
	}
}

func (s *server) handle(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	respReader := NewRESPReader(reader)
	respWriter := NewRESPWriter(writer)

	for {
		args, err := respReader.ReadCommand()
		if err != nil {
			if err != io.EOF {
				log.Printf("read error: %v", err)
			}
			return
		}

		s.execute(respWriter, args)

		// Consume pipelined commands from buffer
		for reader.Buffered() > 0 {
			args, err := respReader.ReadCommand()
			if err != nil {
				respWriter.Flush()
				return
			}
			s.execute(respWriter, args)
		}

		if err := respWriter.Flush(); err != nil {
			return
		}
	}
}

func (s *server) execute(w *RESPWriter, args [][]byte) {
	if len(args) == 0 {
		return
	}

	cmd := strings.ToUpper(string(args[0]))
	ctx := context.Background()

	switch cmd {
	case "GET":
		if len(args) < 2 {
			w.WriteError("ERR wrong number of arguments for 'get' command")
			return
		}
		metrics.GetCounter.Inc()
		val, ok, err := s.cache.Get(ctx, string(args[1]))
		if err != nil {
			w.WriteError("ERR " + err.Error())
			return
		}
		if !ok {
			w.WriteNull()
			return
		}
		w.WriteBulk(val)
	case "SET":
		if len(args) < 3 {
			w.WriteError("ERR wrong number of arguments for 'set' command")
			return
		}
		metrics.SetCounter.Inc()
		if err := s.cache.Set(ctx, string(args[1]), args[2]); err != nil {
			w.WriteError("ERR " + err.Error())
			return
		}
		w.WriteSimpleString("OK")
	case "DEL":
		if len(args) < 2 {
			w.WriteError("ERR wrong number of arguments for 'del' command")
			return
		}
		var removed int64
		for _, key := range args[1:] {
			metrics.DeleteCounter.Inc()
			ok, err := s.cache.Delete(ctx, string(key))
			if err != nil {
				w.WriteError("ERR " + err.Error())
				return
			}
			if ok {
				removed++
			}
		}
		w.WriteInt(removed)
	case "EXISTS":
		if len(args) < 2 {
			w.WriteError("ERR wrong number of arguments for 'exists' command")
			return
		}
		var present int64
		for _, key := range args[1:] {
			if s.cache.Contains(string(key)) {
				present++
			}
		}
		w.WriteInt(present)
	case "DBSIZE":
		w.WriteInt(int64(s.cache.Len()))
	case "FLUSHDB", "FLUSHALL":
		if err := s.cache.Clear(ctx); err != nil {
			w.WriteError("ERR " + err.Error())
			return
		}
		w.WriteSimpleString("OK")
	case "PING":
		if len(args) > 1 {
			w.WriteBulk(args[1])
		} else {
			w.WriteSimpleString("PONG")
		}
	case "INFO":
		w.WriteBulkString(s.info())
	case "COMMAND":
		w.WriteSimpleString("OK")
	case "CLIENT":
		w.WriteSimpleString("OK")
	default:
		w.WriteError(fmt.Sprintf("ERR unknown command '%s'", cmd))
	}
}

func (s *server) info() string {
	m := s.cache.Metrics()
	return fmt.Sprintf(
		"# Server\r\nredis_version:7.0.0\r\nkeep_version:1.0.0\r\nrun_id:%s\r\n\r\n"+
			"# Stats\r\nkeyspace_hits:%d\r\nkeyspace_misses:%d\r\nevicted_keys:%d\r\n\r\n"+
			"# Keyspace\r\ndb0:keys=%d\r\n",
		s.runID, m.Hits, m.Misses, m.Evictions, m.Size,
	)
}
