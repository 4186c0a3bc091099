// Package archive persists finished monitoring sessions and written exports
// to a local SQLite database.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/watchher/monitoring-server/internal/session"
	"github.com/watchher/monitoring-server/pkg/types"
)

// Store wraps the SQLite handle.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the archive database and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP,
			stopped_at TIMESTAMP,
			frames_processed INTEGER,
			women_monitored INTEGER,
			safety_alerts INTEGER,
			risk_zones INTEGER,
			threat_level TEXT
		);
		CREATE TABLE IF NOT EXISTS exports (
			filename TEXT PRIMARY KEY,
			session_id TEXT,
			risk_zones INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	return &Store{db}, nil
}

// RecordSession inserts one finished session.
func (s *Store) RecordSession(r session.Record) error {
	_, err := s.Exec(
		`INSERT INTO sessions (id, started_at, stopped_at, frames_processed, women_monitored, safety_alerts, risk_zones, threat_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt, r.StoppedAt, r.FramesProcessed, r.WomenMonitored,
		r.SafetyAlerts, r.RiskZones, string(r.ThreatLevel),
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// RecordExport inserts one written export document. sessionID may be empty
// when no session was active at export time.
func (s *Store) RecordExport(filename, sessionID string, riskZones int) error {
	_, err := s.Exec(
		"INSERT INTO exports (filename, session_id, risk_zones) VALUES (?, ?, ?)",
		filename, sessionID, riskZones,
	)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (s *Store) Sessions(limit int) ([]session.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.Query(
		`SELECT id, started_at, stopped_at, frames_processed, women_monitored, safety_alerts, risk_zones, threat_level
		 FROM sessions ORDER BY stopped_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		var r session.Record
		var threat string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.StoppedAt, &r.FramesProcessed,
			&r.WomenMonitored, &r.SafetyAlerts, &r.RiskZones, &threat); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.ThreatLevel = types.ThreatLevel(threat)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// ExportRecord is one archived export document reference.
type ExportRecord struct {
	Filename  string    `json:"filename"`
	SessionID string    `json:"session_id,omitempty"`
	RiskZones int       `json:"risk_zones"`
	CreatedAt time.Time `json:"created_at"`
}

// Exports returns the most recent export records, newest first.
func (s *Store) Exports(limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.Query(
		"SELECT filename, session_id, risk_zones, created_at FROM exports ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var r ExportRecord
		if err := rows.Scan(&r.Filename, &r.SessionID, &r.RiskZones, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
