// Package web serves journaled account reports over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const (
	reportPollInterval = 2 * time.Second
	heartbeatInterval  = 30 * time.Second
)

type reportReader interface {
	ReportsAfter(index uint64, accountID string) ([]domain.AccountReportRecord, error)
	Latest(accountID string) (domain.AccountReportRecord, bool, error)
	CurrentIndex() uint64
}

// Server exposes the latest report of an account and an SSE stream of new reports.
type Server struct {
	Addr   string
	Store  reportReader
	logger *zap.Logger
	poll   time.Duration
}

// NewServer creates a new web server instance.
func NewServer(addr string, store reportReader, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Store: store, logger: logger, poll: reportPollInterval}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/reports/latest", s.handleLatest)
	mux.HandleFunc("/reports/stream", s.handleStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("report server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleLatest serves GET /reports/latest?account=ID.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "report journal not available", http.StatusServiceUnavailable)
		return
	}
	account := r.URL.Query().Get("account")
	if account == "" {
		http.Error(w, "account is required", http.StatusBadRequest)
		return
	}

	record, ok, err := s.Store.Latest(account)
	if err != nil {
		s.logger.Error("load latest report", zap.String("account", account), zap.Error(err))
		http.Error(w, "failed to load report", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no report for account", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Journal-Index", strconv.FormatUint(record.Index, 10))
	_ = json.NewEncoder(w).Encode(record.Report)
}

// handleStream serves GET /reports/stream?account=ID&after=N as server-sent events. Without
// account every account's reports are streamed; after skips reports up to that journal index.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "report journal not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	account := r.URL.Query().Get("account")
	lastIndex := uint64(0)
	if raw := r.URL.Query().Get("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "after must be a journal index", http.StatusBadRequest)
			return
		}
		lastIndex = v
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.poll)
	defer pollTicker.Stop()

	sendReports := func() error {
		// everything up to head is scanned below, matching or not
		head := s.Store.CurrentIndex()
		records, err := s.Store.ReportsAfter(lastIndex, account)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Report)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: report\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		if head > lastIndex {
			lastIndex = head
		}
		return nil
	}

	if err := sendReports(); err != nil {
		http.Error(w, "failed to load reports", http.StatusInternalServerError)
		s.logger.Error("report stream initial load", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendReports(); err != nil {
				s.logger.Warn("report stream poll", zap.Error(err))
			}
		}
	}
}
