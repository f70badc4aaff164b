package notifier

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

type TaskInfo struct {
	TaskID      string
	CallbackURL string
	Status      TaskStatus
	Error       *ErrorBody
	CreatedAt   time.Time
	CompletedAt time.Time
}

// TaskHistory keeps the most recent tasks. When it reaches its capacity the oldest
// task is dropped. Backed by a ring buffer (deque) to avoid reallocations.
type TaskHistory struct {
	mu   sync.RWMutex
	data *deque.Deque[*TaskInfo]
	cap  int
}

func NewTaskHistory(cap int) *TaskHistory {
	if cap < 1 {
		cap = 1
	}
	return &TaskHistory{
		data: deque.New[*TaskInfo](cap, cap),
		cap:  cap,
	}
}

func (h *TaskHistory) Add(taskID, callbackURL string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.data.Len() >= h.cap {
		h.data.PopFront()
	}
	h.data.PushBack(&TaskInfo{
		TaskID:      taskID,
		CallbackURL: callbackURL,
		Status:      TaskPending,
		CreatedAt:   time.Now(),
	})
}

func (h *TaskHistory) Complete(taskID string, errBody *ErrorBody) {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.find(taskID)
	if !ok {
		return
	}
	task.CompletedAt = time.Now()
	if errBody != nil {
		task.Status = TaskFailed
		task.Error = errBody
		return
	}
	task.Status = TaskSucceeded
}

// Get returns a copy of the task
func (h *TaskHistory) Get(taskID string) (TaskInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	task, ok := h.find(taskID)
	if !ok {
		return TaskInfo{}, false
	}
	return *task, true
}

func (h *TaskHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data.Len()
}

// find scans from the newest task
func (h *TaskHistory) find(taskID string) (*TaskInfo, bool) {
	for i := h.data.Len() - 1; i >= 0; i-- {
		if task := h.data.At(i); task.TaskID == taskID {
			return task, true
		}
	}
	return nil, false
}
