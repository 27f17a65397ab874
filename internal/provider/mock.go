package provider

import "context"

// MockProvider returns canned replies, for tests and offline runs.
type MockProvider struct {
	Reply string
	Err   error
	Calls []string
}

// NewMockProvider creates a provider that always returns reply.
func NewMockProvider(reply string) *MockProvider {
	return &MockProvider{Reply: reply}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.Calls = append(m.Calls, user)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
