// Package approval gates side-effecting actions behind explicit yes/no
// confirmation from the user.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/timeline"
	"github.com/nativeiq/nativeiq/internal/tools"
)

// DefaultTTL is how long a pending action stays valid without a reply.
const DefaultTTL = 10 * time.Minute

// chainedSlotSuffix marks the secondary slot holding a follow-up email
// proposal.
const chainedSlotSuffix = "_email"

// PendingAction is a proposed side-effecting action awaiting confirmation.
type PendingAction struct {
	Intent            string         `json:"intent"`
	Parameters        map[string]any `json:"parameters"`
	OriginalMessage   string         `json:"original_message"`
	PermissionMessage string         `json:"permission_message"`
	ChainedFrom       string         `json:"chained_from,omitempty"`
	ApprovalID        string         `json:"approval_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ReplyResult is the outcome of handling an approval reply.
type ReplyResult struct {
	Approved bool
	Executed bool
	Response string
	Intent   string
}

// Manager tracks pending actions per user. Each user has a primary slot
// and an optional chained slot holding a follow-up email proposal; the
// chained slot is resolved first when both are pending.
type Manager struct {
	mu      sync.Mutex
	slots   map[string]*PendingAction
	userMus map[string]*sync.Mutex

	ttl           time.Duration
	chainKeywords []string

	registry *tools.Registry
	sessions session.Store
	timeline *timeline.TimelineService
	now      func() time.Time
}

// NewManager creates an approval manager. Timeline may be nil.
func NewManager(registry *tools.Registry, sessions session.Store, tl *timeline.TimelineService, ttl time.Duration, chainKeywords []string) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		slots:         make(map[string]*PendingAction),
		userMus:       make(map[string]*sync.Mutex),
		ttl:           ttl,
		chainKeywords: chainKeywords,
		registry:      registry,
		sessions:      sessions,
		timeline:      tl,
		now:           time.Now,
	}
}

// userLock returns the mutex serializing all approval work for one user.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.userMus[userID]
	if !ok {
		mu = &sync.Mutex{}
		m.userMus[userID] = mu
	}
	return mu
}

// Propose stores a pending action in the user's primary slot and returns
// the permission prompt to send. A newer proposal overwrites whatever was
// pending before.
func (m *Manager) Propose(userID string, action PendingAction) string {
	mu := m.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	return m.proposeLocked(userID, userID, action)
}

func (m *Manager) proposeLocked(userID, slotKey string, action PendingAction) string {
	action.CreatedAt = m.now()
	if action.PermissionMessage == "" {
		action.PermissionMessage = fmt.Sprintf("Should I run %s? (yes/no)", action.Intent)
	}

	m.mu.Lock()
	if old, ok := m.slots[slotKey]; ok && m.timeline != nil {
		m.timeline.ResolveApproval(old.ApprovalID, timeline.ApprovalExpired)
	}
	m.mu.Unlock()

	if m.timeline != nil {
		args, _ := json.Marshal(action.Parameters)
		action.ApprovalID = m.timeline.RecordApproval(userID, slotKey, action.Intent, string(args), action.ChainedFrom)
	}

	m.mu.Lock()
	m.slots[slotKey] = &action
	m.mu.Unlock()

	return action.PermissionMessage
}

// Pending returns the action the next reply would resolve, preferring the
// chained slot. Expired slots are removed first.
func (m *Manager) Pending(userID string) *PendingAction {
	mu := m.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	m.expireLocked(userID)
	return m.pendingLocked(userID)
}

func (m *Manager) pendingLocked(userID string) *PendingAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.slots[userID+chainedSlotSuffix]; ok {
		return a
	}
	return m.slots[userID]
}

// expireLocked lazily drops slots older than the TTL and returns what
// was discarded so the user can be told.
func (m *Manager) expireLocked(userID string) []*PendingAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []*PendingAction
	for _, key := range []string{userID, userID + chainedSlotSuffix} {
		a, ok := m.slots[key]
		if !ok {
			continue
		}
		if m.now().Sub(a.CreatedAt) > m.ttl {
			delete(m.slots, key)
			if m.timeline != nil {
				m.timeline.ResolveApproval(a.ApprovalID, timeline.ApprovalExpired)
			}
			expired = append(expired, a)
		}
	}
	return expired
}

// HandleReply inspects a user message. When the user has a pending action
// and the message parses as yes/no, the action is resolved and handled
// is true. Any other message falls through to the normal pipeline, with
// the pending action left in place. A reply arriving after the TTL gets
// an expiry notice with handled false, so the text is still processed
// normally.
func (m *Manager) HandleReply(ctx context.Context, userID, text string) (*ReplyResult, bool) {
	mu := m.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if expired := m.expireLocked(userID); len(expired) > 0 {
		return &ReplyResult{
			Intent:   expired[0].Intent,
			Response: fmt.Sprintf("Your pending %s request expired, so I dropped it. Ask again if you still want it.", expired[0].Intent),
		}, false
	}

	slotKey := userID
	m.mu.Lock()
	if _, ok := m.slots[userID+chainedSlotSuffix]; ok {
		slotKey = userID + chainedSlotSuffix
	}
	action, ok := m.slots[slotKey]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	decision := ParseReply(text)
	if decision == DecisionNone {
		return nil, false
	}

	// Remove the slot before acting so a repeated reply is a no-op.
	m.mu.Lock()
	delete(m.slots, slotKey)
	m.mu.Unlock()

	if decision == DecisionDeny {
		if m.timeline != nil {
			m.timeline.ResolveApproval(action.ApprovalID, timeline.ApprovalDenied)
		}
		return &ReplyResult{
			Approved: false,
			Intent:   action.Intent,
			Response: fmt.Sprintf("Okay, I won't run %s.", action.Intent),
		}, true
	}

	if m.timeline != nil {
		m.timeline.ResolveApproval(action.ApprovalID, timeline.ApprovalApproved)
	}

	output, err := m.registry.Execute(ctx, action.Intent, action.Parameters)
	if err != nil {
		return &ReplyResult{
			Approved: true,
			Executed: false,
			Intent:   action.Intent,
			Response: fmt.Sprintf("I tried to run %s but it failed: %v", action.Intent, err),
		}, true
	}

	response := output
	if follow := m.afterExecution(userID, action); follow != "" {
		response += "\n\n" + follow
	}

	return &ReplyResult{
		Approved: true,
		Executed: true,
		Intent:   action.Intent,
		Response: response,
	}, true
}

// afterExecution applies session side effects for an executed action and
// may chain a follow-up email proposal. Returns the follow-up prompt, if
// any.
func (m *Manager) afterExecution(userID string, action *PendingAction) string {
	sess := m.sessions.GetOrCreate(userID)

	switch action.Intent {
	case "schedule_meeting":
		title := tools.GetString(action.Parameters, "title", "Meeting")
		when := tools.GetString(action.Parameters, "time", "")
		attendees := tools.GetStringSlice(action.Parameters, "attendees")

		sess.SetLastMeeting(session.Meeting{Title: title, Time: when, Attendees: attendees})
		for _, email := range attendees {
			sess.AddContact(session.Contact{
				Name:   nameFromEmail(email),
				Email:  email,
				Source: "meeting",
			})
		}
		_ = m.sessions.Save(sess)

		if len(attendees) > 0 && containsChainKeyword(action.OriginalMessage, m.chainKeywords) {
			return m.chainEmail(userID, title, attendees[0])
		}

	case "email_tool":
		sess.SetLastEmailStatus(session.EmailStatus{
			Sent:    true,
			To:      tools.GetString(action.Parameters, "recipient", ""),
			Subject: tools.GetString(action.Parameters, "subject", ""),
		})
		_ = m.sessions.Save(sess)
	}
	return ""
}

// chainEmail queues the follow-up email proposal in the chained slot.
func (m *Manager) chainEmail(userID, title, recipient string) string {
	subject := "Meeting Invite: " + title
	chained := PendingAction{
		Intent: "email_tool",
		Parameters: map[string]any{
			"recipient": recipient,
			"subject":   subject,
			"body":      fmt.Sprintf("You're invited to %q.", title),
		},
		ChainedFrom:       "schedule_meeting",
		PermissionMessage: fmt.Sprintf("Should I also email the invite to %s? (yes/no)", recipient),
	}
	return m.proposeLocked(userID, userID+chainedSlotSuffix, chained)
}

// containsChainKeyword reports whether the original request also asked
// for an email follow-up.
func containsChainKeyword(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func nameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
