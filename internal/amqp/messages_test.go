package amqp

import (
	"testing"
	"time"
)

func TestNewGoalEvent(t *testing.T) {
	event := NewGoalEvent("g1", "u1", ActionCompleted, "2024-01-02")

	if event.GoalID != "g1" || event.UserID != "u1" {
		t.Errorf("NewGoalEvent() IDs = %v/%v", event.GoalID, event.UserID)
	}
	if event.Action != ActionCompleted {
		t.Errorf("NewGoalEvent() Action = %v, want %v", event.Action, ActionCompleted)
	}
	if event.Date != "2024-01-02" {
		t.Errorf("NewGoalEvent() Date = %v", event.Date)
	}
	if event.Timestamp.IsZero() {
		t.Error("NewGoalEvent() Timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("NewGoalEvent() Timestamp should be recent")
	}
}

func TestGoalEvent_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	event := &GoalEvent{
		GoalID:    "g1",
		UserID:    "u1",
		Action:    ActionException,
		Date:      "2024-01-02",
		Timestamp: timestamp,
	}

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := GoalEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("GoalEventFromJSON() error = %v", err)
	}

	if parsed.GoalID != event.GoalID || parsed.UserID != event.UserID {
		t.Errorf("Parsed IDs = %v/%v, want %v/%v", parsed.GoalID, parsed.UserID, event.GoalID, event.UserID)
	}
	if parsed.Action != event.Action || parsed.Date != event.Date {
		t.Errorf("Parsed Action/Date = %v/%v, want %v/%v", parsed.Action, parsed.Date, event.Action, event.Date)
	}
	if !parsed.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, event.Timestamp)
	}
}

func TestGoalEvent_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"goal_id": 42, "action": "created"`)

	if _, err := GoalEventFromJSON(invalidJSON); err == nil {
		t.Error("GoalEventFromJSON() should fail with invalid JSON")
	}
}

func TestGoalEvent_OmitsEmptyDate(t *testing.T) {
	event := NewGoalEvent("g1", "u1", ActionCreated, "")

	jsonBytes, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if contains(string(jsonBytes), `"date"`) {
		t.Errorf("whole-goal events must not carry a date: %s", jsonBytes)
	}
}

// Helper function for string contains check
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || func() bool {
		for i := 0; i <= len(s)-len(substr); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}())
}
