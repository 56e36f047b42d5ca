package apicem

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Flag is a boolean the controller sends either as JSON bool or as string.
type Flag bool

// UnmarshalJSON accepts true, "true" and their false counterparts.
func (f *Flag) UnmarshalJSON(data []byte) error {
	value, err := strconv.ParseBool(string(bytes.Trim(data, `"`)))
	if err != nil {
		return fmt.Errorf("parsing flag %s: %w", data, err)
	}

	*f = Flag(value)

	return nil
}

// TaskRef is the handle returned by asynchronous operations.
type TaskRef struct {
	TaskID string `json:"taskId" yaml:"taskId"`
	URL    string `json:"url"    yaml:"url"`
}

// Task is the state of an asynchronous operation.
type Task struct {
	ID            string `json:"id"                      yaml:"id"`
	ServiceType   string `json:"serviceType"             yaml:"serviceType"`
	StartTime     int64  `json:"startTime"               yaml:"startTime"`
	EndTime       int64  `json:"endTime,omitempty"       yaml:"endTime,omitempty"`
	Progress      string `json:"progress"                yaml:"progress"`
	IsError       Flag   `json:"isError"                 yaml:"isError"`
	FailureReason string `json:"failureReason,omitempty" yaml:"failureReason,omitempty"`
	ErrorCode     string `json:"errorCode,omitempty"     yaml:"errorCode,omitempty"`
}

// Done reports whether the task has finished, successfully or not.
func (t *Task) Done() bool {
	return t.EndTime != 0
}

// FlowRequest is the request part of a flow analysis.
type FlowRequest struct {
	ID            string `json:"id"                      yaml:"id"`
	SourceIP      string `json:"sourceIP"                yaml:"sourceIP"`
	DestIP        string `json:"destIP"                  yaml:"destIP"`
	Status        string `json:"status"                  yaml:"status"`
	FailureReason string `json:"failureReason,omitempty" yaml:"failureReason,omitempty"`
}

// PathElement is one hop of a traced path.
type PathElement struct {
	ID   string `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	IP   string `json:"ip"   yaml:"ip"`
	Role string `json:"role" yaml:"role"`
}

// FlowAnalysis is a computed path between two addresses.
type FlowAnalysis struct {
	Request             FlowRequest   `json:"request"             yaml:"request"`
	NetworkElementsInfo []PathElement `json:"networkElementsInfo" yaml:"networkElementsInfo"`
	LastUpdate          string        `json:"lastUpdate"          yaml:"lastUpdate"`
}

type flowAnalysisRequest struct {
	SourceIP string `json:"sourceIP"`
	DestIP   string `json:"destIP"`
}

// StartFlowAnalysis requests a path trace from source to destination and
// returns the id of the task computing it.
func (c *Client) StartFlowAnalysis(ctx context.Context, source, destination string) (string, error) {
	ref, err := decode[TaskRef](c.rest.Post(ctx, "/flow-analysis", flowAnalysisRequest{
		SourceIP: source,
		DestIP:   destination,
	}), "flow analysis task")
	if err != nil {
		return "", err
	}

	if ref.TaskID == "" {
		return "", ErrNoTaskID
	}

	return ref.TaskID, nil
}

// Task returns the state of a task.
func (c *Client) Task(ctx context.Context, taskID string) (*Task, error) {
	task, err := decode[Task](c.rest.Get(ctx, "/task/"+url.PathEscape(taskID), nil), "task")
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// WaitForTask polls a task until it ends. A failed poll counts as an attempt
// and polling goes on. A task ending in error yields ErrTaskFailed; a task
// still running after the configured number of polls yields ErrNoPathFound.
func (c *Client) WaitForTask(ctx context.Context, taskID string) (*Task, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last *Task

	for attempt := 1; ; attempt++ {
		task, err := c.Task(ctx, taskID)

		switch {
		case err != nil:
			c.logger.Warn("failed to get task status", map[string]interface{}{
				"task_id": taskID,
				"attempt": attempt,
				"error":   err.Error(),
			})
		case task.Done():
			if task.IsError {
				return task, fmt.Errorf("%w: %s", ErrTaskFailed, task.FailureReason)
			}

			return task, nil
		default:
			last = task

			c.logger.Info("task is not finished yet", map[string]interface{}{
				"task_id": taskID,
				"attempt": attempt,
			})
		}

		if attempt >= c.maxAttempts {
			if last == nil {
				return nil, fmt.Errorf("polling task %s: %w", taskID, err)
			}

			return last, fmt.Errorf("%w: task %s still running after %d polls", ErrNoPathFound, taskID, attempt)
		}

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("waiting for task %s: %w", taskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// FlowAnalysis returns a computed path. The path id is the progress field of
// the finished flow analysis task.
func (c *Client) FlowAnalysis(ctx context.Context, pathID string) (*FlowAnalysis, error) {
	flow, err := decode[FlowAnalysis](c.rest.Get(ctx, "/flow-analysis/"+url.PathEscape(pathID), nil), "flow analysis")
	if err != nil {
		return nil, err
	}

	return &flow, nil
}

// PathTrace starts a flow analysis, waits for it and returns the path.
func (c *Client) PathTrace(ctx context.Context, source, destination string) (*FlowAnalysis, error) {
	taskID, err := c.StartFlowAnalysis(ctx, source, destination)
	if err != nil {
		return nil, err
	}

	task, err := c.WaitForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return c.FlowAnalysis(ctx, task.Progress)
}
