package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/obsidianstack/upperlimit/internal/engine"
)

func result(name string) *engine.Result {
	return &engine.Result{Analysis: name}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestReplaceAndGet(t *testing.T) {
	st := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = fixedClock(base)
	st.Replace([]*engine.Result{result("s5")})

	e, ok := st.Get("s5")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Result.Analysis != "s5" {
		t.Errorf("Analysis: got %q, want s5", e.Result.Analysis)
	}
	if !e.UpdatedAt.Equal(base) {
		t.Errorf("UpdatedAt: got %v, want %v", e.UpdatedAt, base)
	}
}

func TestGet_Missing(t *testing.T) {
	st := New()
	if _, ok := st.Get("unknown"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestReplace_Overwrites(t *testing.T) {
	st := New()
	st.Replace([]*engine.Result{{Analysis: "a", MaxRate: 1}})
	st.Replace([]*engine.Result{{Analysis: "a", MaxRate: 2}})

	e, _ := st.Get("a")
	if e.Result.MaxRate != 2 {
		t.Errorf("MaxRate: got %v, want 2", e.Result.MaxRate)
	}
	if n := len(st.List()); n != 1 {
		t.Errorf("List: got %d entries, want 1", n)
	}
}

func TestList_SortedByName(t *testing.T) {
	st := New()
	st.Replace([]*engine.Result{result("c"), result("a"), result("b")})
	list := st.List()
	if len(list) != 3 {
		t.Fatalf("List: got %d entries, want 3", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := list[i].Result.Analysis; got != want {
			t.Errorf("List[%d]: got %q, want %q", i, got, want)
		}
	}
}

func TestReplace_DropsRemoved(t *testing.T) {
	st := New()
	st.Replace([]*engine.Result{result("old"), result("kept")})

	failed := &engine.Result{Analysis: "new", Err: errors.New("x")}
	removed := st.Replace([]*engine.Result{result("kept"), failed})

	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if _, ok := st.Get("old"); ok {
		t.Error("old analysis should have been dropped")
	}
	if e, ok := st.Get("new"); !ok || e.Result.Err == nil {
		t.Error("failed results are stored too")
	}
	if n := len(st.List()); n != 2 {
		t.Errorf("List: got %d entries, want 2", n)
	}
}

func TestGeneration(t *testing.T) {
	st := New()
	if st.Generation() != 0 {
		t.Fatalf("fresh store generation: got %d", st.Generation())
	}
	st.Replace([]*engine.Result{result("a")})
	st.Replace(nil)
	if st.Generation() != 2 {
		t.Errorf("generation: got %d, want 2", st.Generation())
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Replace([]*engine.Result{result("a")})
		}()
		go func() {
			defer wg.Done()
			st.List()
			st.Get("a")
		}()
	}
	wg.Wait()
	if n := len(st.List()); n != 1 {
		t.Errorf("List: got %d entries, want 1", n)
	}
}
