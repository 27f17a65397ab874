package agents

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nativeiq/nativeiq/internal/bdi"
	"github.com/nativeiq/nativeiq/internal/contacts"
	"github.com/nativeiq/nativeiq/internal/session"
	"github.com/nativeiq/nativeiq/internal/tools"
)

var (
	emailAddrPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	timePattern      = regexp.MustCompile(`(?i)\b((?:today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday|next week)\b(?:\s+at)?(?:\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?)?|\d{1,2}(?::\d{2})?\s*(?:am|pm))`)
	quotedPattern    = regexp.MustCompile(`["']([^"']+)["']`)
)

// Decision converts opportunities into concrete action proposals. Actions
// on high-risk tools come back flagged for human approval; read-only ones
// pass straight to the execution stage.
type Decision struct {
	registry *tools.Registry
	sessions session.Store
	resolver *contacts.Resolver
	log      *slog.Logger
}

// NewDecision creates the decision strategy.
func NewDecision(registry *tools.Registry, sessions session.Store, resolver *contacts.Resolver, log *slog.Logger) *Decision {
	if log == nil {
		log = slog.Default()
	}
	return &Decision{registry: registry, sessions: sessions, resolver: resolver, log: log}
}

func (d *Decision) Role() string { return "decision" }

func (d *Decision) Perceive(ctx context.Context, messages []string, agentCtx map[string]any) ([]bdi.Belief, error) {
	upstream, _ := agentCtx[KeyAnalyzerOpportunities].([]bdi.Belief)

	// Opportunities raised on earlier turns were already decided on;
	// acting on them again would re-propose the same action forever.
	var beliefs []bdi.Belief
	for _, b := range freshBeliefs(upstream, agentCtx) {
		if !b.Valid() {
			continue
		}
		if kind, ok := b.Content["opportunity"].(string); ok {
			beliefs = append(beliefs, bdi.NewBelief(bdi.BeliefContext, "decision:"+kind, map[string]any{
				"opportunity": kind,
			}, b.Confidence))
		}
	}
	return beliefs, nil
}

func (d *Decision) UpdateDesires(ctx context.Context, beliefs []bdi.Belief, agentCtx map[string]any) ([]bdi.Desire, error) {
	if len(beliefs) == 0 {
		return nil, nil
	}
	return []bdi.Desire{bdi.NewDesire("act_on_opportunity", 8, nil)}, nil
}

func (d *Decision) Deliberate(ctx context.Context, beliefs []bdi.Belief, desires []bdi.Desire, intentions []bdi.Intention) ([]bdi.Intention, error) {
	if len(desires) == 0 {
		return nil, nil
	}
	// The highest-value opportunity drives the intention; meetings beat
	// emails beat status reports.
	best := ""
	for _, b := range beliefs {
		kind, _ := b.Content["opportunity"].(string)
		if rankOpportunity(kind) > rankOpportunity(best) {
			best = kind
		}
	}
	if best == "" {
		return nil, nil
	}
	return []bdi.Intention{
		bdi.NewIntention(desires[0].ID, bdi.ActionExecuteAutomation, map[string]any{
			"opportunity": best,
		}),
	}, nil
}

func rankOpportunity(kind string) int {
	switch kind {
	case OpportunityScheduleMeeting:
		return 4
	case OpportunitySendEmail:
		return 3
	case OpportunityDocumentLookup:
		return 2
	case OpportunityStatusReport:
		return 1
	default:
		return 0
	}
}

func (d *Decision) Act(ctx context.Context, intention bdi.Intention, agentCtx map[string]any) (*bdi.Result, error) {
	userID, _ := agentCtx[KeyUserID].(string)
	message, _ := agentCtx[KeyLatestMessage].(string)
	kind, _ := intention.Parameters["opportunity"].(string)

	switch kind {
	case OpportunityScheduleMeeting:
		params := d.extractMeeting(message)
		if tools.GetString(params, "time", "") == "" {
			return clarify(fmt.Sprintf("I can set up %q, but when should it happen? Give me a day or a time.",
				params["title"])), nil
		}
		return d.propose(userID, "schedule_meeting", params,
			fmt.Sprintf("Schedule %q at %s? (yes/no)", params["title"], params["time"])), nil

	case OpportunitySendEmail:
		params := d.extractEmail(userID, message)
		recipient := tools.GetString(params, "recipient", "")
		if !contacts.IsEmail(recipient) {
			return clarify("Who should receive that email? Give me a name I know or a full address."), nil
		}
		return d.propose(userID, "email_tool", params,
			fmt.Sprintf("Send an email to %s with subject %q? (yes/no)", params["recipient"], params["subject"])), nil

	case OpportunityDocumentLookup:
		query := extractDocQuery(message)
		if query == "" {
			return clarify("Which document should I look for?"), nil
		}
		return d.propose(userID, "drive_search", map[string]any{"query": query},
			fmt.Sprintf("Search the drive for %q? (yes/no)", query)), nil

	case OpportunityStatusReport:
		return &bdi.Result{
			Success:     true,
			Intent:      "get_upcoming_meetings",
			ToolName:    "get_upcoming_meetings",
			Parameters:  map[string]any{"limit": 5},
			StatusQuery: true,
		}, nil
	}
	return &bdi.Result{Success: true}, nil
}

// clarify asks the user for the missing piece. No tool is named, so the
// execution stage skips it and no pending action is ever created.
func clarify(question string) *bdi.Result {
	return &bdi.Result{Success: true, Output: question}
}

// propose flags the action for approval when its tool is high risk.
func (d *Decision) propose(userID, tool string, params map[string]any, prompt string) *bdi.Result {
	res := &bdi.Result{
		Success:    true,
		Intent:     tool,
		ToolName:   tool,
		Parameters: params,
	}
	if d.registry.RequiresApproval(tool) {
		res.RequiresPermission = true
		res.PermissionMessage = prompt
	}
	return res
}

// extractMeeting pulls title, time and attendees out of a free-form
// meeting request.
func (d *Decision) extractMeeting(message string) map[string]any {
	title := "Meeting"
	if m := quotedPattern.FindStringSubmatch(message); m != nil {
		title = m[1]
	} else if i := strings.Index(strings.ToLower(message), "about "); i >= 0 {
		rest := strings.TrimSpace(message[i+len("about "):])
		if cut := timePattern.FindStringIndex(rest); cut != nil {
			rest = strings.TrimSpace(rest[:cut[0]])
		}
		rest = strings.Trim(rest, " .,!")
		if rest != "" {
			title = rest
		}
	}

	when := ""
	if m := timePattern.FindString(message); m != "" {
		when = strings.TrimSpace(m)
	}

	var attendees []string
	for _, addr := range emailAddrPattern.FindAllString(message, -1) {
		attendees = append(attendees, addr)
	}

	return map[string]any{
		"title":     title,
		"time":      when,
		"attendees": attendees,
	}
}

// extractEmail builds email parameters, resolving the recipient through
// the contact book and recent meeting history.
func (d *Decision) extractEmail(userID, message string) map[string]any {
	candidate := ""
	if m := emailAddrPattern.FindString(message); m != "" {
		candidate = m
	} else {
		lower := strings.ToLower(message)
		for _, marker := range []string{"email to ", "send to ", " to "} {
			if i := strings.Index(lower, marker); i >= 0 {
				rest := strings.Fields(message[i+len(marker):])
				if len(rest) > 0 {
					candidate = strings.Trim(rest[0], ".,!?")
					break
				}
			}
		}
	}

	sess := d.sessions.GetOrCreate(userID)
	recipient := d.resolver.Resolve(candidate, message, sess)

	subject := "Follow-up"
	if m := quotedPattern.FindStringSubmatch(message); m != nil {
		subject = m[1]
	} else if meeting, ok := sess.LastMeeting(); ok {
		subject = "Meeting Invite: " + meeting.Title
	}

	return map[string]any{
		"recipient": recipient,
		"subject":   subject,
		"body":      "",
	}
}

// extractDocQuery pulls a document name out of a lookup request. A quoted
// name wins; otherwise the words after an attach/find marker, cut at the
// location phrase ("from Drive", "in the drive").
func extractDocQuery(message string) string {
	if m := quotedPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	lower := strings.ToLower(message)
	for _, marker := range []string{"attach ", "find ", "document called ", "file called "} {
		i := strings.Index(lower, marker)
		if i < 0 {
			continue
		}
		rest := message[i+len(marker):]
		for _, stop := range []string{" from ", " in ", " on "} {
			if j := strings.Index(strings.ToLower(rest), stop); j >= 0 {
				rest = rest[:j]
			}
		}
		for _, prefix := range []string{"the document ", "the file ", "the ", "my "} {
			if strings.HasPrefix(strings.ToLower(rest), prefix) {
				rest = rest[len(prefix):]
			}
		}
		rest = strings.Trim(strings.TrimSpace(rest), ".,!?")
		if rest != "" {
			return rest
		}
	}
	return ""
}

func (d *Decision) Learn(ctx context.Context, beliefs []bdi.Belief, intentions []bdi.Intention, agentCtx map[string]any) error {
	d.log.Debug("decision learned", "considered", len(beliefs))
	return nil
}
