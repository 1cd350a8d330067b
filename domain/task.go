package domain

import (
	"sync/atomic"
	"time"

	"lifeboard/date"
)

// Category groups tasks by life area.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryLearning Category = "Learning"
	CategoryHealth   Category = "Health"
	CategoryPersonal Category = "Personal"
)

// Categories lists the valid task categories.
var Categories = []Category{CategoryWork, CategoryLearning, CategoryHealth, CategoryPersonal}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Task represents a single board item. Status references a Column ID; the
// reference is guarded at delete time, not enforced on write.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  Category  `json:"category"`
	Status    string    `json:"status"`
	DueDate   date.Date `json:"dueDate"`
	CreatedAt int64     `json:"createdAt"` // epoch milliseconds
}

// TaskPatch carries a partial task update; nil fields are left untouched.
type TaskPatch struct {
	Title    *string    `json:"title,omitempty"`
	Category *Category  `json:"category,omitempty"`
	Status   *string    `json:"status,omitempty"`
	DueDate  *date.Date `json:"dueDate,omitempty"`
}

// Apply copies the non-nil patch fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}

var lastMillis int64

// NowUnixMilli returns the current time in epoch milliseconds, strictly
// increasing across calls so records created in the same millisecond keep
// their creation order.
func NowUnixMilli() int64 {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastMillis)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastMillis, last, now) {
			return now
		}
	}
}
