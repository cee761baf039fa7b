package site

import (
	"testing"

	"repcrec/txn"
)

func newTestSite() *Site {
	return New("1", []*Variable{
		NewVariable("x1", 10, ""),
		NewVariable("x2", 20, ""),
	})
}

func TestLockAndRead(t *testing.T) {
	s := newTestSite()
	t1 := txn.New("T1", 0, false)

	if blockers := s.Lock(t1, "x1", ReadLock); blockers != nil {
		t.Fatalf("expected uncontended read lock to succeed, got blockers %v", blockers)
	}
	v, ok := s.Read(t1, "x1")
	if !ok || v.Value != 10 {
		t.Fatalf("expected to read x1=10, got %+v ok=%v", v, ok)
	}
}

func TestWriteLockBlocksOtherWriter(t *testing.T) {
	s := newTestSite()
	t1 := txn.New("T1", 0, false)
	t2 := txn.New("T2", 1, false)

	if b := s.Lock(t1, "x1", WriteLock); b != nil {
		t.Fatalf("expected T1's write lock to succeed, got blockers %v", b)
	}
	blockers := s.Lock(t2, "x1", WriteLock)
	if len(blockers) != 1 || blockers[0] != t1 {
		t.Fatalf("expected T2 blocked by T1, got %v", blockers)
	}
}

func TestReadLockUpgradeToWrite(t *testing.T) {
	s := newTestSite()
	t1 := txn.New("T1", 0, false)

	if b := s.Lock(t1, "x1", ReadLock); b != nil {
		t.Fatalf("expected read lock to succeed, got %v", b)
	}
	if b := s.Lock(t1, "x1", WriteLock); b != nil {
		t.Fatalf("expected same holder's upgrade to write to succeed, got %v", b)
	}
	if len(s.LockTable["x1"]) != 1 || s.LockTable["x1"][0].Kind != WriteLock {
		t.Fatalf("expected exactly one WRITE lock after upgrade, got %+v", s.LockTable["x1"])
	}
}

func TestWriteThenReadIsNoOp(t *testing.T) {
	s := newTestSite()
	t1 := txn.New("T1", 0, false)

	if b := s.Lock(t1, "x1", WriteLock); b != nil {
		t.Fatalf("expected write lock to succeed, got %v", b)
	}
	if b := s.Lock(t1, "x1", ReadLock); b != nil {
		t.Fatalf("expected read request under an existing write lock to be a no-op, got blockers %v", b)
	}
	if len(s.LockTable["x1"]) != 1 || s.LockTable["x1"][0].Kind != WriteLock {
		t.Fatalf("expected the WRITE lock to remain, got %+v", s.LockTable["x1"])
	}
}

func TestCommitAppliesPendingWrites(t *testing.T) {
	s := newTestSite()
	t1 := txn.New("T1", 0, false)
	s.Lock(t1, "x1", WriteLock)
	s.Write(t1, "x1", 99)

	s.Commit(t1, 5)

	if s.Committed["x1"].Value != 99 || s.Committed["x1"].LastCommitTick != 5 {
		t.Fatalf("expected committed x1=99@5, got %+v", s.Committed["x1"])
	}
	if len(s.LockTable["x1"]) != 0 {
		t.Fatalf("expected lock table cleared after commit, got %v", s.LockTable["x1"])
	}
}

func TestAbortDiscardsPendingWrites(t *testing.T) {
	s := newTestSite()
	t1 := txn.New("T1", 0, false)
	s.Lock(t1, "x1", WriteLock)
	s.Write(t1, "x1", 99)

	s.Abort(t1)

	if s.Committed["x1"].Value != 10 {
		t.Fatalf("expected x1 unchanged at 10 after abort, got %d", s.Committed["x1"].Value)
	}
}

func TestFailAbortsReadersAndWriters(t *testing.T) {
	s := newTestSite()
	reader := txn.New("R", 0, true)
	writer := txn.New("W", 0, false)
	s.Read(reader, "x1")
	s.Lock(writer, "x2", WriteLock)
	s.Write(writer, "x2", 1)

	s.Fail(10)

	if !reader.Aborted {
		t.Fatalf("expected active reader to be aborted on site failure")
	}
	if !writer.Aborted {
		t.Fatalf("expected pending writer to be aborted on site failure")
	}
	if s.Active {
		t.Fatalf("expected site to be inactive after Fail")
	}
	if len(s.LockTable) != 0 {
		t.Fatalf("expected lock table cleared on Fail, got %v", s.LockTable)
	}
}

func TestRecoverGatesReplicatedReads(t *testing.T) {
	s := newTestSite()
	s.Fail(3)
	s.Recover(7)

	late := txn.New("late", 8, false)
	if s.AvailableToRead(late, "x1") {
		t.Fatalf("expected a replicated variable to be unreadable immediately after recovery")
	}

	s.Lock(late, "x1", WriteLock)
	s.Write(late, "x1", 55)
	s.Commit(late, 9)

	after := txn.New("after", 10, false)
	if !s.AvailableToRead(after, "x1") {
		t.Fatalf("expected x1 readable once a write has committed post-recovery")
	}
}

func TestROSnapshotIsolatedFromLaterCommits(t *testing.T) {
	s := newTestSite()
	ro := txn.New("RO", 0, true)
	s.CaptureROSnapshot(ro)

	writer := txn.New("W", 1, false)
	s.Lock(writer, "x1", WriteLock)
	s.Write(writer, "x1", 999)
	s.Commit(writer, 2)

	v, ok := s.ReadOnly(ro, "x1")
	if !ok || v.Value != 10 {
		t.Fatalf("expected RO snapshot to still see x1=10, got %+v ok=%v", v, ok)
	}
}

func TestFailClearsROSnapshots(t *testing.T) {
	s := newTestSite()
	ro := txn.New("RO", 0, true)
	s.CaptureROSnapshot(ro)

	s.Fail(5)

	if _, ok := s.ReadOnly(ro, "x1"); ok {
		t.Fatalf("expected RO snapshot to be cleared by a site failure")
	}
}
