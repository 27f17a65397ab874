// Package timeline persists the interaction history and approval audit
// trail in a local sqlite database.
package timeline

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type TimelineService struct {
	db *sql.DB
}

func NewTimelineService(dbPath string) (*TimelineService, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migration for existing dbs (no-op if column exists).
	_, _ = db.Exec(`ALTER TABLE approval_requests ADD COLUMN chained_from TEXT DEFAULT ''`)

	svc := &TimelineService{db: db}

	// Approvals left pending by a previous run are unrecoverable: the
	// in-memory slots are gone, so mark them expired.
	svc.ExpireStalePending()

	return svc, nil
}

// Close closes the underlying database.
func (s *TimelineService) Close() error {
	return s.db.Close()
}

func newID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// RecordEvent appends an interaction to the timeline. Best effort: a
// failed audit write never blocks the pipeline.
func (s *TimelineService) RecordEvent(ev TimelineEvent) {
	if ev.EventID == "" {
		ev.EventID = newID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	_, _ = s.db.Exec(`
		INSERT OR IGNORE INTO timeline (event_id, trace_id, timestamp, user_id, channel, event_type, content_text, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.TraceID, ev.Timestamp, ev.UserID, ev.Channel, ev.EventType, ev.ContentText, ev.Metadata)
}

// RecentEvents returns the latest events for a user, newest first.
func (s *TimelineService) RecentEvents(userID string, limit int) ([]TimelineEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, event_id, COALESCE(trace_id, ''), timestamp, COALESCE(user_id, ''), COALESCE(channel, ''),
		       COALESCE(event_type, ''), COALESCE(content_text, ''), COALESCE(metadata, '')
		FROM timeline WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var events []TimelineEvent
	for rows.Next() {
		var ev TimelineEvent
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.TraceID, &ev.Timestamp, &ev.UserID, &ev.Channel,
			&ev.EventType, &ev.ContentText, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("scan timeline row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecordApproval snapshots a new pending action. Returns the approval id.
func (s *TimelineService) RecordApproval(userID, slotKey, tool, arguments, chainedFrom string) string {
	id := newID()
	_, _ = s.db.Exec(`
		INSERT INTO approval_requests (approval_id, user_id, slot_key, tool, arguments, chained_from, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userID, slotKey, tool, arguments, chainedFrom, ApprovalPending)
	return id
}

// ResolveApproval marks an approval request approved, denied or expired.
func (s *TimelineService) ResolveApproval(approvalID, status string) {
	now := time.Now()
	_, _ = s.db.Exec(`
		UPDATE approval_requests SET status = ?, responded_at = ? WHERE approval_id = ? AND status = ?`,
		status, now, approvalID, ApprovalPending)
}

// PendingApprovals returns all approval requests still awaiting a reply.
func (s *TimelineService) PendingApprovals() ([]ApprovalRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, approval_id, user_id, slot_key, tool, COALESCE(arguments, ''), COALESCE(chained_from, ''), status, created_at, responded_at
		FROM approval_requests WHERE status = ? ORDER BY created_at`, ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var records []ApprovalRecord
	for rows.Next() {
		var rec ApprovalRecord
		if err := rows.Scan(&rec.ID, &rec.ApprovalID, &rec.UserID, &rec.SlotKey, &rec.Tool,
			&rec.Arguments, &rec.ChainedFrom, &rec.Status, &rec.CreatedAt, &rec.RespondedAt); err != nil {
			return nil, fmt.Errorf("scan approval row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExpireStalePending marks every still-pending approval expired. Called on
// startup.
func (s *TimelineService) ExpireStalePending() {
	now := time.Now()
	_, _ = s.db.Exec(`
		UPDATE approval_requests SET status = ?, responded_at = ? WHERE status = ?`,
		ApprovalExpired, now, ApprovalPending)
}

// RecordProactiveSend logs a proactive message delivery.
func (s *TimelineService) RecordProactiveSend(userID, channel, content string) {
	_, _ = s.db.Exec(`
		INSERT INTO proactive_sends (user_id, channel, content) VALUES (?, ?, ?)`,
		userID, channel, content)
}

// ProactiveSendCount returns how many proactive messages a user received
// since the given time.
func (s *TimelineService) ProactiveSendCount(userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM proactive_sends WHERE user_id = ? AND created_at >= ?`,
		userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count proactive sends: %w", err)
	}
	return count, nil
}

// GetSetting returns a persisted setting value.
func (s *TimelineService) GetSetting(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetSetting stores a setting value.
func (s *TimelineService) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
