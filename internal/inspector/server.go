// Package inspector serves a small web UI and JSON API for watching runs
// live and browsing past runs and their artifacts.
package inspector

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cgast/uiverify/pkg/events"
	"github.com/cgast/uiverify/pkg/history"
)

//go:embed ui/*
var embeddedUI embed.FS

// Server is the inspector HTTP + SSE server.
type Server struct {
	bus         events.EventBus
	store       history.Store
	artifactDir string
	mux         *http.ServeMux
	startTime   time.Time

	clients   map[*sseClient]bool
	clientsMu sync.Mutex

	sub       <-chan events.Event
	closeOnce sync.Once
}

// sseClient represents a connected event stream.
type sseClient struct {
	send chan []byte
}

// runHistory is implemented by buses that can filter retained events by run.
type runHistory interface {
	RunHistory(runID string) []events.Event
}

// New creates an inspector server and starts fanning bus events out to
// stream clients until Close. store may be nil when history is disabled;
// artifactDir may be empty to disable artifact serving.
func New(bus events.EventBus, store history.Store, artifactDir string) *Server {
	s := &Server{
		bus:         bus,
		store:       store,
		artifactDir: artifactDir,
		mux:         http.NewServeMux(),
		startTime:   time.Now(),
		clients:     make(map[*sseClient]bool),
	}

	// Serve embedded UI.
	uiFS, _ := fs.Sub(embeddedUI, "ui")
	s.mux.Handle("/", http.FileServer(http.FS(uiFS)))

	if artifactDir != "" {
		s.mux.Handle("/artifacts/", http.StripPrefix("/artifacts/", http.FileServer(http.Dir(artifactDir))))
	}

	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/runs", s.handleRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	s.mux.HandleFunc("GET /api/runs/{id}/events", s.handleRunEvents)

	s.sub = bus.Subscribe()
	go s.broadcastEvents(s.sub)
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspector listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

// StartAsync listens on port and serves in the background until ctx is
// cancelled. It returns the bound address.
func (s *Server) StartAsync(ctx context.Context, port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("inspector listen on port %d: %w", port, err)
	}
	go s.serve(ctx, ln)
	return ln.Addr().String(), nil
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the event fan-out. It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.bus.Unsubscribe(s.sub)
	})
}

func (s *Server) broadcastEvents(ch <-chan events.Event) {
	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}

		s.clientsMu.Lock()
		for client := range s.clients {
			select {
			case client.send <- data:
			default:
				// Client is slow, drop the event.
			}
		}
		s.clientsMu.Unlock()
	}
}

// handleEvents streams events as Server-Sent Events. Retained history is
// replayed first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{send: make(chan []byte, 64)}
	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client)
		s.clientsMu.Unlock()
	}()

	for _, ev := range s.bus.History(time.Time{}) {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.send:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	evs := s.bus.History(time.Time{})
	var runs, failures int
	var current, state string
	for _, ev := range evs {
		switch ev.Type {
		case events.EventRunStart:
			runs++
			current, state = ev.RunID, "running"
		case events.EventRunEnd:
			if ev.RunID == current {
				state = "finished"
			}
		case events.EventStepError:
			failures++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime":       time.Since(s.startTime).Round(time.Second).String(),
		"events":       len(evs),
		"runs":         runs,
		"failures":     failures,
		"current_run":  current,
		"state":        state,
		"history":      s.store != nil,
		"artifact_dir": s.artifactDir,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Summary{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, history.ErrNotFound)
		return
	}
	result, err := s.store.Get(r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var out []events.Event
	if rh, ok := s.bus.(runHistory); ok {
		out = rh.RunHistory(id)
	} else {
		for _, ev := range s.bus.History(time.Time{}) {
			if ev.RunID == id {
				out = append(out, ev)
			}
		}
	}
	if out == nil {
		out = []events.Event{}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
