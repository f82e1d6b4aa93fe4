package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/wizenheimer/surf"
	"github.com/wizenheimer/surf/internal/config"
	"github.com/wizenheimer/surf/internal/logger"
	"github.com/wizenheimer/surf/internal/metrics"
)

// searchResponse is the JSON body of /search
type searchResponse struct {
	Query   string         `json:"query"`
	Matched bool           `json:"matched"`
	Results []searchResult `json:"results"`
	TookMs  float64        `json:"took_ms"`
}

type searchResult struct {
	DocID  uint32 `json:"doc_id"`
	Name   string `json:"name"`
	Weight uint64 `json:"weight"`
	Source string `json:"source"`
}

// docResponse is the JSON body of /doc
type docResponse struct {
	DocID uint32   `json:"doc_id"`
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// server answers queries against one loaded index
type server struct {
	idx      *surf.Index
	metrics  *metrics.Metrics
	defaultK int
	log      *slog.Logger
}

func newServer(idx *surf.Index, m *metrics.Metrics, defaultK int) *server {
	m.IndexDocuments.Set(float64(idx.DocCount()))
	return &server{
		idx:      idx,
		metrics:  m,
		defaultK: defaultK,
		log:      logger.WithComponent("server"),
	}
}

func (s *server) routes(withMetrics bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /doc", s.handleDoc)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "up",
			"documents": s.idx.DocCount(),
			"words":     s.idx.WordCount(),
		})
	})
	if withMetrics {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// handleSearch answers GET /search?q=...&k=...&multi=...&ids=...
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	k := s.defaultK
	if v := q.Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid k %q", v))
			return
		}
		k = n
	}
	multiOcc, _ := strconv.ParseBool(q.Get("multi"))
	ids, _ := strconv.ParseBool(q.Get("ids"))

	o := answer(s.idx, query, batchOptions{K: k, MultiOcc: multiOcc, IDs: ids})
	s.metrics.ObserveQuery(o.Matched, o.Results, o.Elapsed)

	resp := searchResponse{
		Query:   query,
		Matched: o.Matched,
		Results: make([]searchResult, len(o.Results)),
		TookMs:  float64(o.Elapsed.Microseconds()) / 1000,
	}
	for i, res := range o.Results {
		resp.Results[i] = searchResult{
			DocID:  res.DocID,
			Name:   s.idx.DocumentName(res.DocID),
			Weight: res.Weight,
			Source: res.Source.String(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDoc answers GET /doc?id=...
func (s *server) handleDoc(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("id")
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", v))
		return
	}
	terms, err := s.idx.DocumentText(uint32(id))
	if errors.Is(err, surf.ErrDocumentOutOfRange) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.log.Error("document lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, docResponse{
		DocID: uint32(id),
		Name:  s.idx.DocumentName(uint32(id)),
		Terms: terms,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func runServe(cfg *config.Config, args []string) error {
	fs := newFlagSet("serve")
	dir := fs.String("c", cfg.Collection.Dir, "directory the index is stored in")
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	idx, err := surf.Open(*dir)
	if err != nil {
		return fmt.Errorf("opening index %s: %w", *dir, err)
	}
	slog.Info("index loaded",
		slog.String("dir", *dir),
		slog.Int("documents", idx.DocCount()),
		slog.Int("words", idx.WordCount()))

	s := newServer(idx, metrics.New(nil), cfg.Query.K)

	// metrics go on the main listener unless a separate address is configured
	separateMetrics := cfg.Metrics.Enabled && cfg.Metrics.Addr != "" && cfg.Metrics.Addr != *addr
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if separateMetrics {
		metricsServer := &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      s.metrics.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("metrics server listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
		defer metricsServer.Close()
	}

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      s.routes(cfg.Metrics.Enabled && !separateMetrics),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	slog.Info("search service stopped")
	return nil
}
