package rmf

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ListTasksRaw returns the upstream task states that pass validation, each
// as the exact bytes the upstream sent.
func (c *Client) ListTasksRaw(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := c.get(ctx, "/tasks", &items); err != nil {
		return nil, err
	}
	return filterValid(items, "task", func(b []byte) error {
		_, err := DecodeTaskRecord(b)
		return err
	}), nil
}

// ListTasks returns the decoded task records.
func (c *Client) ListTasks(ctx context.Context) ([]TaskRecord, error) {
	raw, err := c.ListTasksRaw(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]TaskRecord, 0, len(raw))
	for _, r := range raw {
		t, _ := DecodeTaskRecord(r)
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

// NewDispatchTaskRequest builds the fixed-shape request the console sends:
// binary priority 0, a single destination visited once, requester "stub".
func NewDispatchTaskRequest(taskType, destination string, now time.Time) *DispatchTaskRequest {
	return &DispatchTaskRequest{
		Type: "dispatch_task_request",
		Request: TaskRequest{
			UnixMillisEarliestStartTime: 0,
			UnixMillisRequestTime:       now.UnixMilli(),
			Priority:                    Priority{Type: "binary", Value: 0},
			Category:                    taskType,
			Description: TaskDescription{
				Places: []string{destination},
				Rounds: 1,
			},
			Labels:    nil,
			Requester: "stub",
		},
	}
}

// DispatchTask posts a dispatch request upstream. The created task id is not
// surfaced; callers learn about the task from its state events.
func (c *Client) DispatchTask(ctx context.Context, req *DispatchTaskRequest) error {
	if len(req.Request.Description.Places) == 0 || req.Request.Description.Places[0] == "" {
		return fmt.Errorf("rmf dispatch: destination is required")
	}
	if req.Request.Category == "" {
		return fmt.Errorf("rmf dispatch: task type is required")
	}
	return c.post(ctx, "/tasks/dispatch_task", req, nil)
}
