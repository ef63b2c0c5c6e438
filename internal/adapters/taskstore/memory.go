// Package taskstore keeps the most recently assembled tasks per owner.
package taskstore

import (
	"sync"

	"github.com/mikey/llm-task-extractor/internal/core"
)

// MemoryStore is an in-process TaskStore
type MemoryStore struct {
	mu          sync.RWMutex
	tasks       map[string][]core.Task
	maxPerOwner int
}

// NewMemoryStore creates a store. Append keeps at most maxPerOwner tasks per
// owner, dropping the oldest; a non-positive value means unbounded.
func NewMemoryStore(maxPerOwner int) *MemoryStore {
	return &MemoryStore{
		tasks:       make(map[string][]core.Task),
		maxPerOwner: maxPerOwner,
	}
}

// Replace swaps the owner's tasks for a copy of tasks
func (s *MemoryStore) Replace(owner string, tasks []core.Task) {
	cp := make([]core.Task, len(tasks))
	copy(cp, tasks)

	s.mu.Lock()
	s.tasks[owner] = cp
	s.mu.Unlock()
}

// Append adds one task to the owner's list
func (s *MemoryStore) Append(owner string, task core.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.tasks[owner], task)
	if s.maxPerOwner > 0 && len(list) > s.maxPerOwner {
		list = append([]core.Task(nil), list[len(list)-s.maxPerOwner:]...)
	}
	s.tasks[owner] = list
}

// List returns a copy of the owner's tasks; never nil
func (s *MemoryStore) List(owner string) []core.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]core.Task, len(s.tasks[owner]))
	copy(cp, s.tasks[owner])
	return cp
}

var _ core.TaskStore = (*MemoryStore)(nil)
