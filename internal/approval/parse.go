package approval

import "strings"

// Decision is the parsed meaning of a user reply to a permission prompt.
type Decision int

const (
	// DecisionNone means the reply is neither an approval nor a denial.
	DecisionNone Decision = iota
	// DecisionApprove means the user confirmed the action.
	DecisionApprove
	// DecisionDeny means the user rejected the action.
	DecisionDeny
)

var approveWords = map[string]struct{}{
	"yes": {}, "y": {}, "approve": {}, "confirm": {}, "ok": {}, "okay": {},
}

var denyWords = map[string]struct{}{
	"no": {}, "n": {}, "cancel": {}, "deny": {}, "reject": {},
}

// ParseReply classifies a message as approval, denial or neither. Matching
// is case-insensitive and the whole trimmed message must be a single vocab
// word; "yes please schedule it" is a new instruction, not a reply.
func ParseReply(text string) Decision {
	word := strings.ToLower(strings.TrimSpace(text))
	word = strings.TrimRight(word, ".!")
	if _, ok := approveWords[word]; ok {
		return DecisionApprove
	}
	if _, ok := denyWords[word]; ok {
		return DecisionDeny
	}
	return DecisionNone
}
