package waitlist

import (
	"testing"

	"repcrec/txn"
)

func TestEnqueueIsIdempotent(t *testing.T) {
	wl := New()
	t1 := txn.New("T1", 0, false)
	t2 := txn.New("T2", 1, false)

	wl.Enqueue(t1, OpRead, []string{"x1"}, []*txn.Transaction{t2})
	wl.Enqueue(t1, OpRead, []string{"x1"}, []*txn.Transaction{t2})

	if len(wl.List()) != 1 {
		t.Fatalf("expected a repeated identical enqueue to be a no-op, got %d entries", len(wl.List()))
	}
	if !t1.Blocked {
		t.Fatalf("expected t1 to be marked blocked")
	}
}

func TestRemoveAllOfT(t *testing.T) {
	wl := New()
	t1 := txn.New("T1", 0, false)
	wl.Enqueue(t1, OpRead, []string{"x1"}, nil)
	wl.Enqueue(t1, OpWrite, []string{"x2", "5"}, nil)

	wl.RemoveAllOfT(t1)

	if len(wl.List()) != 0 {
		t.Fatalf("expected all of t1's entries removed, got %d", len(wl.List()))
	}
}

func TestDeadlockDetectionNoCycle(t *testing.T) {
	wl := New()
	t1 := txn.New("T1", 0, false)
	t2 := txn.New("T2", 1, false)
	wl.Enqueue(t1, OpRead, []string{"x1"}, []*txn.Transaction{t2})

	victims := wl.DeadlockDetection()
	if len(victims) != 0 {
		t.Fatalf("expected no victims absent a cycle, got %v", victims)
	}
}

func TestDeadlockDetectionTwoCycleSelectsYoungest(t *testing.T) {
	wl := New()
	t1 := txn.New("T1", 0, false)
	t2 := txn.New("T2", 5, false)

	wl.Enqueue(t1, OpWrite, []string{"x1", "1"}, []*txn.Transaction{t2})
	wl.Enqueue(t2, OpWrite, []string{"x2", "1"}, []*txn.Transaction{t1})

	victims := wl.DeadlockDetection()
	if len(victims) != 1 || victims[0] != t2 {
		t.Fatalf("expected T2 (younger, larger StartTick) as sole victim, got %v", victims)
	}
}

func TestDeadlockDetectionThreeCycle(t *testing.T) {
	wl := New()
	t1 := txn.New("T1", 0, false)
	t2 := txn.New("T2", 1, false)
	t3 := txn.New("T3", 2, false)

	wl.Enqueue(t1, OpWrite, []string{"x1", "1"}, []*txn.Transaction{t2})
	wl.Enqueue(t2, OpWrite, []string{"x2", "1"}, []*txn.Transaction{t3})
	wl.Enqueue(t3, OpWrite, []string{"x3", "1"}, []*txn.Transaction{t1})

	victims := wl.DeadlockDetection()
	if len(victims) != 1 || victims[0] != t3 {
		t.Fatalf("expected T3 (youngest) as sole victim, got %v", victims)
	}
}

func TestGetWaitObjOfT(t *testing.T) {
	wl := New()
	t1 := txn.New("T1", 0, false)
	if _, ok := wl.GetWaitObjOfT(t1); ok {
		t.Fatalf("expected no wait object before enqueue")
	}
	wl.Enqueue(t1, OpRead, []string{"x1"}, nil)
	wo, ok := wl.GetWaitObjOfT(t1)
	if !ok || wo.Tx != t1 {
		t.Fatalf("expected to find t1's wait object")
	}
}
