package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
	"go.uber.org/atomic"
)

// RunFunc is the background work of a task, its result becomes the callback payload
type RunFunc func(ctx context.Context) (interface{}, error)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type CallbackBody struct {
	TaskID  string      `json:"taskId"`
	Success bool        `json:"success"`
	Error   *ErrorBody  `json:"error"`
	Payload interface{} `json:"payload"`
}

// Notifier runs long operations in the background and reports their outcome
// to a callback url. Delivery is attempted once.
type Notifier struct {
	ctx      context.Context
	client   *http.Client
	history  *TaskHistory
	inFlight atomic.Int64
	wg       sync.WaitGroup
	log      interfaces.ILogger
}

// NewNotifier uses ctx for every task, cancelling it aborts running tasks
func NewNotifier(ctx context.Context, client *http.Client, history *TaskHistory, log interfaces.ILogger) *Notifier {
	return &Notifier{
		ctx:     ctx,
		client:  client,
		history: history,
		log:     log,
	}
}

// Notify returns the task id before the work starts
func (n *Notifier) Notify(callbackURL string, run RunFunc) string {
	taskID := uuid.NewString()
	n.history.Add(taskID, callbackURL)

	n.inFlight.Inc()
	n.wg.Add(1)

	go func() {
		defer n.wg.Done()
		defer n.inFlight.Dec()

		payload, err := n.run(run)
		body := NewCallbackBody(taskID, payload, err)
		n.history.Complete(taskID, body.Error)

		if err != nil {
			n.log.Warnf("task %s failed: %s", taskID, err)
		} else {
			n.log.Debugf("task %s succeeded", taskID)
		}

		if err := n.post(callbackURL, body); err != nil {
			n.log.Errorf("failed to POST to callback %s, task %s: %s", callbackURL, taskID, err)
			return
		}
		n.log.Debugf("task %s outcome delivered to %s", taskID, callbackURL)
	}()

	return taskID
}

func (n *Notifier) run(run RunFunc) (payload interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return run(n.ctx)
}

func NewCallbackBody(taskID string, payload interface{}, err error) *CallbackBody {
	if err == nil {
		return &CallbackBody{TaskID: taskID, Success: true, Payload: payload}
	}
	errBody := &ErrorBody{Message: err.Error()}
	if code, ok := usererr.CodeOf(err); ok {
		errBody.Code = string(code)
	}
	return &CallbackBody{TaskID: taskID, Error: errBody, Payload: payload}
}

func (n *Notifier) post(callbackURL string, body *CallbackBody) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(n.ctx, http.MethodPost, callbackURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("callback responded with status %d", res.StatusCode)
	}
	return nil
}

func (n *Notifier) Task(taskID string) (TaskInfo, bool) {
	return n.history.Get(taskID)
}

func (n *Notifier) InFlight() int64 {
	return n.inFlight.Load()
}

// Wait blocks until all running tasks have delivered their outcome
func (n *Notifier) Wait() {
	n.wg.Wait()
}
