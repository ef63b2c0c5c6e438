package taskstore_test

import (
	"sync"
	"testing"

	"github.com/mikey/llm-task-extractor/internal/adapters/taskstore"
	"github.com/mikey/llm-task-extractor/internal/core"
)

func TestMemoryStore(t *testing.T) {
	store := taskstore.NewMemoryStore(2)

	if got := store.List("nobody"); got == nil || len(got) != 0 {
		t.Errorf("List for unknown owner = %v, want empty slice", got)
	}

	store.Replace("s1", []core.Task{{Subject: "a"}, {Subject: "b"}, {Subject: "c"}})
	if got := store.List("s1"); len(got) != 3 {
		t.Errorf("Replace does not cap: got %d tasks", len(got))
	}

	store.Append("smtp", core.Task{Subject: "1"})
	store.Append("smtp", core.Task{Subject: "2"})
	store.Append("smtp", core.Task{Subject: "3"})
	got := store.List("smtp")
	if len(got) != 2 || got[0].Subject != "2" || got[1].Subject != "3" {
		t.Errorf("Append kept %+v, want the two newest", got)
	}

	got[0].Subject = "mutated"
	if store.List("smtp")[0].Subject != "2" {
		t.Error("List must return a copy")
	}
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	store := taskstore.NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Append("smtp", core.Task{Subject: "x"})
		}()
	}
	wg.Wait()

	if got := len(store.List("smtp")); got != 50 {
		t.Errorf("got %d tasks, want 50", got)
	}
}
