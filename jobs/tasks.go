package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionSweep trims expired session records from postgres.
	TaskSessionSweep = "session:sweep"
	// TaskStudentResync refreshes the linked-student snapshot held by a
	// guardian's live sessions after a link change.
	TaskStudentResync = "students:resync"
)

// StudentResyncPayload names the account whose sessions need a fresh
// student snapshot.
type StudentResyncPayload struct {
	AccountID string `json:"accountId"`
}

// NewSessionSweepTask constructs the periodic sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}

// NewStudentResyncTask constructs a resync task for one account.
func NewStudentResyncTask(payload StudentResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStudentResync, data), nil
}
