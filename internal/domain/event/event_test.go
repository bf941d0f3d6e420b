package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	for _, typ := range AllTypes() {
		if !typ.IsValid() {
			t.Errorf("%s.IsValid() = false, want true", typ)
		}
	}

	invalid := []Type{"", "instance.created", "WORKFLOW.CREATED", "workflow.archived"}
	for _, typ := range invalid {
		if typ.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", typ)
		}
	}
}

func TestType_IsStatusChange(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeWorkflowCreated, false},
		{TypeWorkflowEdited, false},
		{TypeWorkflowSubmitted, true},
		{TypeWorkflowQueued, true},
		{TypeWorkflowApproved, true},
		{TypeWorkflowRejected, true},
		{TypeWorkflowCompleted, true},
		{TypeWorkflowDeleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType.String(), func(t *testing.T) {
			if got := tt.eventType.IsStatusChange(); got != tt.want {
				t.Errorf("Type.IsStatusChange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeWorkflowSubmitted, "wf-001", "1", map[string]interface{}{KeyNewStatus: "submitted"})
	after := time.Now()

	if evt.ID == "" {
		t.Error("NewEvent() should assign an ID")
	}
	if evt.CorrelationID != evt.ID {
		t.Errorf("CorrelationID = %q, want event ID %q", evt.CorrelationID, evt.ID)
	}
	if evt.WorkflowID != "wf-001" || evt.ActorID != "1" {
		t.Errorf("NewEvent() ids = (%q, %q), want (wf-001, 1)", evt.WorkflowID, evt.ActorID)
	}
	if evt.Timestamp.Before(before) || evt.Timestamp.After(after) {
		t.Errorf("Timestamp %v outside [%v, %v]", evt.Timestamp, before, after)
	}

	other := NewEvent(TypeWorkflowSubmitted, "wf-001", "1", nil)
	if other.ID == evt.ID {
		t.Error("NewEvent() should generate unique IDs")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeWorkflowApproved, "wf-002", "appr-001", nil, "chain-1")

	if evt.CorrelationID != "chain-1" {
		t.Errorf("CorrelationID = %q, want chain-1", evt.CorrelationID)
	}
	if evt.ID == "chain-1" {
		t.Error("event ID should not be the correlation ID")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeWorkflowRejected, "wf-003", "appr-001", map[string]interface{}{KeyTitle: "Chair"})

	updated := original.WithPayload(KeyComment, "Budget exceeded")

	if _, ok := original.Payload[KeyComment]; ok {
		t.Error("WithPayload() should not modify the original payload")
	}
	if got := updated.GetPayloadString(KeyComment); got != "Budget exceeded" {
		t.Errorf("GetPayloadString(comment) = %q, want %q", got, "Budget exceeded")
	}
	if got := updated.GetPayloadString(KeyTitle); got != "Chair" {
		t.Errorf("GetPayloadString(title) = %q, want Chair", got)
	}
	if updated.ID != original.ID || updated.Timestamp != original.Timestamp {
		t.Error("WithPayload() should preserve identity fields")
	}
}

func TestEvent_GetPayloadString(t *testing.T) {
	evt := NewEvent(TypeWorkflowCreated, "wf-001", "1", map[string]interface{}{
		"string": "value",
		"number": 42,
	})

	tests := []struct {
		key  string
		want string
	}{
		{"string", "value"},
		{"number", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := evt.GetPayloadString(tt.key); got != tt.want {
				t.Errorf("GetPayloadString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestEvent_GetPayloadUint(t *testing.T) {
	evt := NewEvent(TypeWorkflowEdited, "wf-001", "1", map[string]interface{}{
		"uint64":   uint64(7),
		"int":      3,
		"negative": -1,
		"float":    float64(9),
		"string":   "5",
	})

	tests := []struct {
		key  string
		want uint64
	}{
		{"uint64", 7},
		{"int", 3},
		{"negative", 0},
		{"float", 9},
		{"string", 0},
		{"missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := evt.GetPayloadUint(tt.key); got != tt.want {
				t.Errorf("GetPayloadUint(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}
