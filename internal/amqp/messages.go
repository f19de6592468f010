package amqp

import (
	"encoding/json"
	"time"
)

// GoalEvent is a lightweight change notification. It carries only the goal
// and user IDs; the worker fetches current state from the database.
type GoalEvent struct {
	GoalID    string    `json:"goal_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Date      string    `json:"date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionCompleted = "completed"
	ActionException = "exception"
)

func NewGoalEvent(goalID, userID, action, date string) *GoalEvent {
	return &GoalEvent{
		GoalID:    goalID,
		UserID:    userID,
		Action:    action,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (e *GoalEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func GoalEventFromJSON(data []byte) (*GoalEvent, error) {
	var e GoalEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
