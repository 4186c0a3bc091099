// Package server exposes the monitoring pipeline over HTTP: the dashboard,
// the MJPEG stream, the status API with its SSE feed, heatmap rendering,
// reports, exports, and session control.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/watchher/monitoring-server/internal/archive"
	"github.com/watchher/monitoring-server/internal/export"
	"github.com/watchher/monitoring-server/internal/heatmap"
	"github.com/watchher/monitoring-server/internal/logger"
	"github.com/watchher/monitoring-server/internal/metrics"
	"github.com/watchher/monitoring-server/internal/session"
	"github.com/watchher/monitoring-server/internal/source"
)

// Server wires the pipeline components to the HTTP surface.
type Server struct {
	cfg      Config
	manager  *session.Manager
	exporter *export.Exporter
	store    *archive.Store
	metrics  *metrics.Metrics

	stop    chan struct{}
	stopped bool
}

// NewServer returns a configured server. The status broadcast loop starts
// with Start.
func NewServer(cfg Config, manager *session.Manager, exporter *export.Exporter, store *archive.Store, m *metrics.Metrics) *Server {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultConfig().StatusInterval
	}
	if cfg.SessionsLimit <= 0 {
		cfg.SessionsLimit = DefaultConfig().SessionsLimit
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		cfg.Viewport = heatmap.DefaultViewport
	}

	return &Server{
		cfg:      cfg,
		manager:  manager,
		exporter: exporter,
		store:    store,
		metrics:  m,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic status broadcast for SSE clients.
func (s *Server) Start() {
	go func() {
		ticker := time.NewTicker(s.cfg.StatusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.manager.BroadcastStatus()
			}
		}
	}()
}

// Stop halts the status broadcast loop.
func (s *Server) Stop() {
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/api/heatmap", s.handleHeatmap)
	mux.HandleFunc("/api/heatmap/cells", s.handleHeatmapCells)
	mux.HandleFunc("/api/log", s.handleLog)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/report/text", s.handleReportText)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/exports", s.handleExports)
	mux.Handle("/exports/", http.StripPrefix("/exports/", newExportHandler(s.exporter.Dir())))
	mux.HandleFunc("/api/session/start", s.handleSessionStart)
	mux.HandleFunc("/api/session/stop", s.handleSessionStop)
	mux.HandleFunc("/api/session/clear", s.handleSessionClear)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/journal/start", s.handleJournalStart)
	mux.HandleFunc("/api/journal/stop", s.handleJournalStop)
	mux.HandleFunc("/api/journal/status", s.handleJournalStatus)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.metrics.StreamClients.Add(1)
	defer s.metrics.StreamClients.Add(^uint64(0))

	id, frameCh := s.manager.Frames().Subscribe()
	defer s.manager.Frames().Unsubscribe(id)
	streamMJPEGFromChannel(w, r, frameCh)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.manager.Status())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	s.metrics.EventClients.Add(1)
	defer s.metrics.EventClients.Add(^uint64(0))

	id, eventCh := s.manager.Events().Subscribe()
	defer s.manager.Events().Unsubscribe(id)

	// Send one snapshot immediately so the client does not wait a full
	// broadcast interval for its first update.
	streamSSEFromChannel(w, r, s.manager.Status(), eventCh)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	grid := heatmap.Render(s.manager.Zones().Snapshot(), s.cfg.Viewport)
	jpg, err := heatmap.EncodeJPEG(grid)
	if err != nil {
		http.Error(w, "Failed to render heatmap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(jpg)
}

func (s *Server) handleHeatmapCells(w http.ResponseWriter, r *http.Request) {
	grid := heatmap.Render(s.manager.Zones().Snapshot(), s.cfg.Viewport)
	writeJSON(w, map[string]any{
		"grid":      grid,
		"cell_size": s.manager.CellSize(),
		"legend":    heatmap.Legend(),
	})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSONWithStatus(w, map[string]any{"error": "invalid n"}, http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeJSON(w, map[string]any{"entries": logger.Tail(n)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	zones, stats, _ := s.manager.AggregateSnapshot()
	writeJSON(w, export.BuildReport(zones, stats))
}

func (s *Server) handleReportText(w http.ResponseWriter, r *http.Request) {
	zones, stats, _ := s.manager.AggregateSnapshot()
	report := export.BuildReport(zones, stats)

	// POST saves the rendered report to the export directory.
	if r.Method == http.MethodPost {
		name, err := s.exporter.WriteReport(report)
		if err != nil {
			logger.Error("Server", "report write: %v", err)
			writeJSONWithStatus(w, map[string]any{"error": "report save failed"}, http.StatusInternalServerError)
			return
		}
		logger.Info("Server", "safety report saved to %s", name)
		writeJSON(w, map[string]any{
			"filename": name,
			"url":      "/exports/" + name,
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report.Text()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	zones, stats, history := s.manager.AggregateSnapshot()
	doc := export.BuildDocument(zones, stats, history, s.manager.CellSize())

	name, err := s.exporter.Write(doc)
	if err != nil {
		s.metrics.ExportErrors.Add(1)
		if errors.Is(err, export.ErrNoData) {
			writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
			return
		}
		logger.Error("Server", "export write: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": "export failed"}, http.StatusInternalServerError)
		return
	}
	s.metrics.ExportsWritten.Add(1)

	sessionID := ""
	status := s.manager.Status()
	if status.Monitoring {
		sessionID = status.SessionID
	}
	if s.store != nil {
		if err := s.store.RecordExport(name, sessionID, len(doc.RiskZones)); err != nil {
			logger.Warn("Server", "archive export record: %v", err)
		}
	}

	logger.Info("Server", "heatmap data exported to %s", name)
	writeJSON(w, map[string]any{
		"filename": name,
		"url":      "/exports/" + name,
		"document": doc,
	})
}

func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	names, err := s.exporter.List()
	if err != nil {
		logger.Error("Server", "list exports: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": "export directory unavailable"}, http.StatusInternalServerError)
		return
	}

	payload := map[string]any{"exports": names}
	if s.store != nil {
		records, err := s.store.Exports(s.cfg.SessionsLimit)
		if err != nil {
			logger.Warn("Server", "query export archive: %v", err)
		} else {
			if records == nil {
				records = []archive.ExportRecord{}
			}
			payload["archive"] = records
		}
	}
	writeJSON(w, payload)
}

type sessionStartRequest struct {
	Source string `json:"source"`
	Path   string `json:"path,omitempty"`
	URL    string `json:"url,omitempty"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": "invalid request body"}, http.StatusBadRequest)
		return
	}

	src, err := openSource(req)
	if err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	sess, err := s.manager.Start(src)
	if err != nil {
		_ = src.Close()
		switch {
		case errors.Is(err, session.ErrSessionActive):
			writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusConflict)
		case errors.Is(err, session.ErrNotReady):
			writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusPreconditionFailed)
		default:
			writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, map[string]any{
		"status":     "monitoring",
		"session_id": sess.ID,
		"started_at": sess.StartedAt,
	})
}

func openSource(req sessionStartRequest) (source.Source, error) {
	switch req.Source {
	case "camera":
		if req.URL == "" {
			return nil, fmt.Errorf("camera source requires a url")
		}
		return source.NewCameraSource(req.URL), nil
	case "file":
		if req.Path == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		return source.NewFileSource(req.Path)
	default:
		return nil, fmt.Errorf("unknown source %q", req.Source)
	}
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	record, err := s.manager.Stop()
	if err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusConflict)
		return
	}

	writeJSON(w, map[string]any{
		"status":  "stopped",
		"session": record,
	})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.manager.Clear()
	writeJSON(w, map[string]any{"status": "cleared"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, map[string]any{"sessions": []session.Record{}})
		return
	}

	records, err := s.store.Sessions(s.cfg.SessionsLimit)
	if err != nil {
		logger.Error("Server", "query sessions: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": "archive unavailable"}, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []session.Record{}
	}
	writeJSON(w, map[string]any{"sessions": records})
}

func (s *Server) handleJournalStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.manager.Journal().Start(); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusConflict)
		return
	}
	writeJSON(w, s.manager.Journal().Status())
}

func (s *Server) handleJournalStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.manager.Journal().Stop(); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusConflict)
		return
	}
	writeJSON(w, s.manager.Journal().Status())
}

func (s *Server) handleJournalStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.manager.Journal().Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"timestamp": float64(time.Now().Unix()),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
