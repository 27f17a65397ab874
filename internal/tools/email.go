package tools

import (
	"context"
	"fmt"
)

// EmailTool sends an email through the mail backend. High risk: it only
// runs after the user approves the proposal.
type EmailTool struct {
	mailer MailAPI
}

// NewEmailTool creates the email_tool action.
func NewEmailTool(mailer MailAPI) *EmailTool {
	return &EmailTool{mailer: mailer}
}

func (t *EmailTool) Name() string { return "email_tool" }

func (t *EmailTool) Description() string {
	return "Send an email on the user's behalf."
}

func (t *EmailTool) Tier() int { return TierHighRisk }

func (t *EmailTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"type":        "string",
				"description": "Recipient email address or name",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Email subject line",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Email body text",
			},
		},
		"required": []string{"recipient", "subject"},
	}
}

func (t *EmailTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	to := GetString(params, "recipient", "")
	if to == "" {
		return "", fmt.Errorf("email requires a recipient")
	}
	subject := GetString(params, "subject", "")
	body := GetString(params, "body", "")

	if err := t.mailer.Send(ctx, OutgoingEmail{To: to, Subject: subject, Body: body}); err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return fmt.Sprintf("Email sent to %s: %s", to, subject), nil
}
