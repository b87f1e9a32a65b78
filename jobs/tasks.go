package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSheetImport is the task type for background sheet imports.
	TaskSheetImport = "sheet:import"

	importMaxRetry  = 0
	importTimeout   = 10 * time.Minute
	importRetention = 24 * time.Hour
)

// SheetImportPayload describes the sheet a background import reads.
type SheetImportPayload struct {
	URL string `json:"url"`
}

// NewSheetImportTask constructs an Asynq task identified by taskID.
func NewSheetImportTask(taskID string, payload SheetImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSheetImport, data,
		asynq.TaskID(taskID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(importMaxRetry),
		asynq.Timeout(importTimeout),
		asynq.Retention(importRetention),
	), nil
}
