// Package session provides per-user conversation state and persistence.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Metadata keys for structured per-user state.
const (
	metaLastMeeting     = "last_meeting"
	metaLastEmailStatus = "last_email_status"
	metaContacts        = "contacts"
)

// Message represents a chat message in a session.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Meeting records the most recently scheduled meeting for a user.
type Meeting struct {
	Title       string    `json:"title"`
	Time        string    `json:"time"`
	Attendees   []string  `json:"attendees"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// EmailStatus records the outcome of the most recent email send.
type EmailStatus struct {
	Sent    bool      `json:"sent"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	At      time.Time `json:"at"`
}

// Contact is a known person learned from executed actions.
type Contact struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Source string `json:"source"`
}

// ContactBook indexes contacts by email and by lowercase name. Names are
// not unique, so each name maps to a list in insertion order; lookups that
// need a single contact take the first entry.
type ContactBook struct {
	ByEmail map[string]Contact   `json:"by_email"`
	ByName  map[string][]Contact `json:"by_name"`
}

// FirstByName returns the earliest stored contact for the lowercase name.
func (b ContactBook) FirstByName(name string) (Contact, bool) {
	list := b.ByName[name]
	if len(list) == 0 {
		return Contact{}, false
	}
	return list[0], true
}

// Session represents a user's conversation state.
type Session struct {
	Key       string         `json:"key"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	mu        sync.RWMutex
}

// NewSession creates a new session with the given key.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// AddMessage adds a message to the session.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// GetHistory returns the recent message history.
func (s *Session) GetHistory(maxMessages int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Messages) <= maxMessages {
		result := make([]Message, len(s.Messages))
		copy(result, s.Messages)
		return result
	}
	result := make([]Message, maxMessages)
	copy(result, s.Messages[len(s.Messages)-maxMessages:])
	return result
}

// GetMetadata returns a metadata value by key.
func (s *Session) GetMetadata(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Metadata == nil {
		return nil, false
	}
	val, ok := s.Metadata[key]
	return val, ok
}

// SetMetadata sets a metadata value by key.
func (s *Session) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Metadata[key] = value
	s.UpdatedAt = time.Now()
}

// SetLastMeeting records the most recently scheduled meeting.
func (s *Session) SetLastMeeting(m Meeting) {
	if m.ScheduledAt.IsZero() {
		m.ScheduledAt = time.Now()
	}
	s.SetMetadata(metaLastMeeting, structToMap(m))
}

// LastMeeting returns the most recently scheduled meeting, if any.
func (s *Session) LastMeeting() (Meeting, bool) {
	raw, ok := s.GetMetadata(metaLastMeeting)
	if !ok {
		return Meeting{}, false
	}
	var m Meeting
	if !mapToStruct(raw, &m) {
		return Meeting{}, false
	}
	return m, true
}

// SetLastEmailStatus records the outcome of an email send.
func (s *Session) SetLastEmailStatus(e EmailStatus) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.SetMetadata(metaLastEmailStatus, structToMap(e))
}

// LastEmailStatus returns the most recent email outcome, if any.
func (s *Session) LastEmailStatus() (EmailStatus, bool) {
	raw, ok := s.GetMetadata(metaLastEmailStatus)
	if !ok {
		return EmailStatus{}, false
	}
	var e EmailStatus
	if !mapToStruct(raw, &e) {
		return EmailStatus{}, false
	}
	return e, true
}

// AddContact indexes a contact by email and by lowercase name. A second
// contact under the same name is appended, not overwritten; the first
// stored contact keeps winning single-contact lookups.
func (s *Session) AddContact(c Contact) {
	book := s.Contacts()
	if c.Email != "" {
		book.ByEmail[strings.ToLower(c.Email)] = c
	}
	if c.Name != "" {
		name := strings.ToLower(c.Name)
		known := false
		for _, existing := range book.ByName[name] {
			if strings.EqualFold(existing.Email, c.Email) {
				known = true
				break
			}
		}
		if !known {
			book.ByName[name] = append(book.ByName[name], c)
		}
	}
	s.SetMetadata(metaContacts, structToMap(book))
}

// Contacts returns the user's contact book. Never nil maps.
func (s *Session) Contacts() ContactBook {
	book := ContactBook{
		ByEmail: map[string]Contact{},
		ByName:  map[string][]Contact{},
	}
	raw, ok := s.GetMetadata(metaContacts)
	if ok {
		mapToStruct(raw, &book)
		if book.ByEmail == nil {
			book.ByEmail = map[string]Contact{}
		}
		if book.ByName == nil {
			book.ByName = map[string][]Contact{}
		}
	}
	return book
}

// LastActivity returns the most recent executed-action timestamp, or zero
// time when the user has no recorded activity.
func (s *Session) LastActivity() time.Time {
	var last time.Time
	if m, ok := s.LastMeeting(); ok && m.ScheduledAt.After(last) {
		last = m.ScheduledAt
	}
	if e, ok := s.LastEmailStatus(); ok && e.At.After(last) {
		last = e.At
	}
	return last
}

func structToMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func mapToStruct(raw any, out any) bool {
	data, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Store is the persistence boundary for per-user state. The file-backed
// Manager is the production implementation; tests use MemoryStore.
type Store interface {
	GetOrCreate(key string) *Session
	Save(session *Session) error
	Delete(key string) bool
	List() []SessionInfo
}

// Manager manages JSONL session persistence on disk.
type Manager struct {
	sessionsDir string
	cache       map[string]*Session
	mu          sync.RWMutex
}

// NewManager creates a session manager storing files under dir.
func NewManager(dir string) *Manager {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".nativeiq", "sessions")
	}
	os.MkdirAll(dir, 0755)

	return &Manager{
		sessionsDir: dir,
		cache:       make(map[string]*Session),
	}
}

// GetOrCreate returns an existing session or creates a new one.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.cache[key]; ok {
		return session
	}

	session := m.load(key)
	if session == nil {
		session = NewSession(key)
	}

	m.cache[key] = session
	return session
}

// Save persists a session to disk.
func (m *Manager) Save(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.sessionPath(session.Key)

	session.mu.RLock()
	defer session.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer file.Close()

	// Write metadata as first line
	meta := map[string]any{
		"_type":      "metadata",
		"created_at": session.CreatedAt.Format(time.RFC3339),
		"updated_at": session.UpdatedAt.Format(time.RFC3339),
		"metadata":   session.Metadata,
	}
	metaLine, _ := json.Marshal(meta)
	file.WriteString(string(metaLine) + "\n")

	// Write messages as subsequent lines
	for _, msg := range session.Messages {
		msgLine, _ := json.Marshal(msg)
		file.WriteString(string(msgLine) + "\n")
	}

	m.cache[session.Key] = session
	return nil
}

// Delete removes a session.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, key)

	path := m.sessionPath(key)
	if err := os.Remove(path); err != nil {
		return false
	}
	return true
}

// SessionInfo contains metadata about a session.
type SessionInfo struct {
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
	Path      string
}

// List returns information about all sessions.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []SessionInfo

	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return sessions
	}

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		path := filepath.Join(m.sessionsDir, entry.Name())
		key := strings.TrimSuffix(entry.Name(), ".jsonl")
		key = strings.ReplaceAll(key, "_", ":")

		info := SessionInfo{
			Key:  key,
			Path: path,
		}

		if data, err := os.ReadFile(path); err == nil {
			if i := strings.IndexByte(string(data), '\n'); i > 0 {
				var meta map[string]any
				if json.Unmarshal(data[:i], &meta) == nil {
					if created, ok := meta["created_at"].(string); ok {
						info.CreatedAt, _ = time.Parse(time.RFC3339, created)
					}
					if updated, ok := meta["updated_at"].(string); ok {
						info.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
					}
				}
			}
		}

		sessions = append(sessions, info)
	}

	return sessions
}

func (m *Manager) sessionPath(key string) string {
	safeKey := strings.ReplaceAll(key, ":", "_")
	// Strip path separators and traversal components to prevent path injection.
	safeKey = strings.ReplaceAll(safeKey, "/", "_")
	safeKey = strings.ReplaceAll(safeKey, "\\", "_")
	safeKey = strings.ReplaceAll(safeKey, "..", "_")
	return filepath.Join(m.sessionsDir, filepath.Base(safeKey)+".jsonl")
}

func (m *Manager) load(key string) *Session {
	path := m.sessionPath(key)

	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	session := NewSession(key)
	decoder := json.NewDecoder(file)

	for decoder.More() {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			break
		}

		var check map[string]any
		if json.Unmarshal(raw, &check) == nil {
			if check["_type"] == "metadata" {
				if created, ok := check["created_at"].(string); ok {
					session.CreatedAt, _ = time.Parse(time.RFC3339, created)
				}
				if updated, ok := check["updated_at"].(string); ok {
					session.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
				}
				if meta, ok := check["metadata"].(map[string]any); ok {
					session.Metadata = meta
				}
				continue
			}
		}

		var msg Message
		if json.Unmarshal(raw, &msg) == nil {
			session.Messages = append(session.Messages, msg)
		}
	}

	return session
}
