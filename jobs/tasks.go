// Package jobs defines the asynq task types and handlers for background
// work, currently grade recalculation after an evaluation application
// closes.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TaskGradesRecalc recomputes grades for every student answer sheet of
	// a closed evaluation application.
	TaskGradesRecalc = "grades:recalc"

	// QueueDefault is the queue all tasks are enqueued to.
	QueueDefault = "default"
)

// GradesRecalcPayload identifies the application whose grades need
// recomputing.
type GradesRecalcPayload struct {
	ApplicationID int64 `json:"application_id"`
}

// NewGradesRecalcTask builds the recalculation task for an application.
func NewGradesRecalcTask(applicationID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(GradesRecalcPayload{ApplicationID: applicationID})
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal payload: %w", err)
	}
	return asynq.NewTask(TaskGradesRecalc, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
