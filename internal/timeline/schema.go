package timeline

import (
	"time"
)

// TimelineEvent represents a single interaction in the history.
type TimelineEvent struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"event_id"`
	TraceID     string    `json:"trace_id"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Channel     string    `json:"channel"`
	EventType   string    `json:"event_type"` // MESSAGE, ACTION, PROACTIVE, SYSTEM
	ContentText string    `json:"content_text"`
	Metadata    string    `json:"metadata,omitempty"` // JSON blob for rich detail
}

// Event type constants.
const (
	EventMessage   = "MESSAGE"
	EventAction    = "ACTION"
	EventProactive = "PROACTIVE"
	EventSystem    = "SYSTEM"
)

// ApprovalRecord represents a pending-action snapshot stored in the database.
type ApprovalRecord struct {
	ID          int64      `json:"id"`
	ApprovalID  string     `json:"approval_id"`
	UserID      string     `json:"user_id"`
	SlotKey     string     `json:"slot_key"`
	Tool        string     `json:"tool"`
	Arguments   string     `json:"arguments,omitempty"`
	ChainedFrom string     `json:"chained_from,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// Approval status constants.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"
	ApprovalExpired  = "expired"
)

// ProactiveSendRecord represents a proactive message delivered to a user.
type ProactiveSendRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Channel   string    `json:"channel"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS timeline (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT UNIQUE,
	trace_id TEXT,
	timestamp DATETIME,
	user_id TEXT,
	channel TEXT,
	event_type TEXT,
	content_text TEXT,
	metadata TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_timeline_timestamp ON timeline(timestamp);
CREATE INDEX IF NOT EXISTS idx_timeline_user ON timeline(user_id);
CREATE INDEX IF NOT EXISTS idx_timeline_trace ON timeline(trace_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS approval_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	approval_id TEXT UNIQUE NOT NULL,
	user_id TEXT NOT NULL,
	slot_key TEXT NOT NULL,
	tool TEXT NOT NULL,
	arguments TEXT,
	chained_from TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	responded_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_approval_status ON approval_requests(status);
CREATE INDEX IF NOT EXISTS idx_approval_user ON approval_requests(user_id);

CREATE TABLE IF NOT EXISTS proactive_sends (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	channel TEXT,
	content TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_proactive_user ON proactive_sends(user_id);
`
