package session

import (
	"errors"
	"sync"
	"time"

	"github.com/watchher/monitoring-server/internal/journal"
	"github.com/watchher/monitoring-server/internal/logger"
	"github.com/watchher/monitoring-server/internal/metrics"
	"github.com/watchher/monitoring-server/internal/safety"
	"github.com/watchher/monitoring-server/internal/source"
	"github.com/watchher/monitoring-server/internal/vision"
	"github.com/watchher/monitoring-server/pkg/types"
)

// Manager preconditions.
var (
	ErrSessionActive = errors.New("a monitoring session is already active")
	ErrNoSession     = errors.New("no monitoring session is active")
	ErrNotReady      = errors.New("perception service is not ready")
)

// Record summarizes a finished session for archival.
type Record struct {
	ID              string            `json:"id"`
	StartedAt       time.Time         `json:"started_at"`
	StoppedAt       time.Time         `json:"stopped_at"`
	FramesProcessed int               `json:"frames_processed"`
	WomenMonitored  int               `json:"women_monitored"`
	SafetyAlerts    int               `json:"safety_alerts"`
	RiskZones       int               `json:"risk_zones"`
	ThreatLevel     types.ThreatLevel `json:"threat_level"`
}

// Status is the composite state served by the status endpoint and the SSE
// stream.
type Status struct {
	Monitoring    bool                       `json:"monitoring"`
	SessionID     string                     `json:"session_id,omitempty"`
	SessionStart  *time.Time                 `json:"session_start,omitempty"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Statistics    safety.StatisticsSnapshot  `json:"statistics"`
	ThreatColor   string                     `json:"threat_color"`
	RiskZones     int                        `json:"risk_zones"`
	JournalActive bool                       `json:"journal_active"`
	StreamClients uint64                     `json:"stream_clients"`
	EventClients  uint64                     `json:"event_clients"`
	Timestamp     time.Time                  `json:"timestamp"`
}

// Manager owns the shared aggregates and enforces the single-active-session
// rule. Aggregates persist across sessions until cleared.
type Manager struct {
	cfg      Config
	analyzer vision.Analyzer
	metrics  *metrics.Metrics
	journal  *journal.Journal

	agg    *aggregates
	frames *FrameBroadcaster
	events *EventBroadcaster

	startTime time.Time
	onStop    func(Record)

	mu     sync.Mutex
	active *Session
}

// NewManager creates a manager with fresh aggregates.
func NewManager(cfg Config, analyzer vision.Analyzer, m *metrics.Metrics, jnl *journal.Journal) *Manager {
	return &Manager{
		cfg:       cfg,
		analyzer:  analyzer,
		metrics:   m,
		journal:   jnl,
		agg:       newAggregates(cfg.CellSize, cfg.HistoryCapacity),
		frames:    NewFrameBroadcaster(),
		events:    NewEventBroadcaster(),
		startTime: time.Now(),
	}
}

// SetStopHook registers a callback invoked with the record of every stopped
// session. Set before the first session starts.
func (m *Manager) SetStopHook(hook func(Record)) {
	m.onStop = hook
}

// Start begins a monitoring session over the given source. It fails when a
// session is already running or the perception service is not reachable.
func (m *Manager) Start(src source.Source) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrSessionActive
	}
	if !m.analyzer.Ready() {
		return nil, ErrNotReady
	}

	s := newSession(m.cfg, src, m.analyzer, m.agg, m.journal, m.frames, m.metrics)
	s.start()
	m.active = s
	m.metrics.SessionsStarted.Add(1)

	logger.Info("Manager", "session %s started", s.ID)
	return s, nil
}

// Stop ends the active session, waits for its worker to finish, and returns
// the session record.
func (m *Manager) Stop() (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.active
	if s == nil {
		return Record{}, ErrNoSession
	}

	// The manager lock stays held across the join, so a concurrent Start
	// cannot begin until the worker has finished its frame and released
	// the source.
	s.Stop()
	m.active = nil

	stats, zoneCount := m.agg.statusView()
	record := Record{
		ID:              s.ID,
		StartedAt:       s.StartedAt,
		StoppedAt:       time.Now(),
		FramesProcessed: stats.FramesProcessed,
		WomenMonitored:  stats.WomenMonitored,
		SafetyAlerts:    stats.SafetyAlerts,
		RiskZones:       zoneCount,
		ThreatLevel:     stats.ThreatLevel,
	}

	if m.onStop != nil {
		m.onStop(record)
	}

	logger.Info("Manager", "session %s stopped after %d frames", s.ID, record.FramesProcessed)
	return record, nil
}

// Clear resets the aggregates. The active session, if any, keeps running
// and accumulates into the cleared state.
func (m *Manager) Clear() {
	m.agg.clear()
	m.metrics.RiskZoneCells.Store(0)
	m.metrics.ThreatLevelRank.Store(0)
	logger.Info("Manager", "heatmap data cleared")
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Status assembles the composite status snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	stats, zoneCount := m.agg.statusView()
	status := Status{
		Monitoring:    active != nil,
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Statistics:    stats,
		ThreatColor:   stats.ThreatLevel.Color(),
		RiskZones:     zoneCount,
		JournalActive: m.journal.Active(),
		StreamClients: m.metrics.StreamClients.Load(),
		EventClients:  m.metrics.EventClients.Load(),
		Timestamp:     time.Now(),
	}
	if active != nil {
		status.SessionID = active.ID
		start := active.StartedAt
		status.SessionStart = &start
	}
	return status
}

// AggregateSnapshot returns the zones, statistics, and history captured
// under one lock, so the three views describe the same frames. Exports
// and reports read through this.
func (m *Manager) AggregateSnapshot() (safety.RiskZoneMap, safety.StatisticsSnapshot, []types.RiskEvent) {
	return m.agg.snapshot()
}

// Zones returns the shared risk aggregator.
func (m *Manager) Zones() *safety.RiskZoneAggregator {
	return m.agg.zones
}

// History returns the shared event history.
func (m *Manager) History() *safety.EventHistory {
	return m.agg.history
}

// Stats returns the shared statistics counter.
func (m *Manager) Stats() *safety.StatisticsCounter {
	return m.agg.stats
}

// Frames returns the MJPEG frame broadcaster.
func (m *Manager) Frames() *FrameBroadcaster {
	return m.frames
}

// Events returns the SSE status broadcaster.
func (m *Manager) Events() *EventBroadcaster {
	return m.events
}

// Journal returns the risk-event journal.
func (m *Manager) Journal() *journal.Journal {
	return m.journal
}

// CellSize returns the configured heatmap grid cell size.
func (m *Manager) CellSize() int {
	return m.agg.zones.CellSize()
}

// BroadcastStatus publishes the current status to SSE subscribers. The
// server calls this on a fixed interval while clients are connected.
func (m *Manager) BroadcastStatus() {
	if m.events.ClientCount() == 0 {
		return
	}
	m.events.Publish(m.Status())
}
