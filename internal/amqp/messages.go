package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message types carried in the "type" field of every body.
const (
	TypeExpenseSync   = "expense.sync"
	TypeExpenseDelete = "expense.delete"
	TypeReminderAlert = "reminder.alert"
)

// ErrMalformed marks a body that can never be processed; it is dropped
// instead of requeued.
var ErrMalformed = errors.New("malformed message")

// ExpenseSyncMessage carries only the id and version; the worker loads the
// full expense from the database.
type ExpenseSyncMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id, version int64) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{
		Type:      TypeExpenseSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ExpenseDeleteMessage is published after the row is gone, so it carries
// everything the mirror needs to find its copy.
type ExpenseDeleteMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseDeleteMessage(id, projectID int64) *ExpenseDeleteMessage {
	return &ExpenseDeleteMessage{
		Type:      TypeExpenseDelete,
		ID:        id,
		ProjectID: projectID,
		Timestamp: time.Now(),
	}
}

// ReminderAlertMessage announces a car reminder that is expired or due
// within a month.
type ReminderAlertMessage struct {
	Type        string    `json:"type"`
	UserID      string    `json:"user_id"`
	ProjectID   int64     `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Kind        string    `json:"kind"`
	Date        string    `json:"date"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Key identifies an alert for de-duplication within one day.
func (m *ReminderAlertMessage) Key() string {
	return fmt.Sprintf("%d:%s:%s", m.ProjectID, m.Kind, m.Timestamp.Format("2006-01-02"))
}

// Decode returns one of *ExpenseSyncMessage, *ExpenseDeleteMessage or
// *ReminderAlertMessage. Bodies without a type are read as sync messages,
// the format used before the envelope had a type field.
func Decode(body []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg any
	switch head.Type {
	case TypeExpenseSync, "":
		msg = &ExpenseSyncMessage{}
	case TypeExpenseDelete:
		msg = &ExpenseDeleteMessage{}
	case TypeReminderAlert:
		msg = &ReminderAlertMessage{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, head.Type)
	}
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m, ok := msg.(*ExpenseSyncMessage); ok {
		if m.ID <= 0 {
			return nil, fmt.Errorf("%w: missing expense id", ErrMalformed)
		}
		m.Type = TypeExpenseSync
	}
	return msg, nil
}
