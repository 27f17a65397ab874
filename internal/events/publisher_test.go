package events

import (
	"context"
	"testing"
)

func TestMemoryPublisherRecordsAndStampsTime(t *testing.T) {
	p := NewMemoryPublisher()

	err := p.Publish(context.Background(), Event{
		Type:   TypeApprovalRequest,
		UserID: "u1",
		Tool:   "schedule_meeting",
	})
	if err != nil {
		t.Fatal(err)
	}

	got := p.Events()
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if got[0].Type != TypeApprovalRequest || got[0].UserID != "u1" {
		t.Fatalf("event = %+v", got[0])
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}
}

func TestNopPublisherAcceptsEverything(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), Event{Type: TypePipelineResult}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
