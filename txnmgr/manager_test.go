package txnmgr

import (
	"bytes"
	"io"
	"testing"

	"repcrec/datamgr"
	"repcrec/logging"
	"repcrec/report"
)

func testManager(buf *bytes.Buffer) *Manager {
	dm := datamgr.New(3, 4)
	rep := report.New(buf)
	log := logging.NewStructuredLogger(logging.Config{
		Level:   logging.ERROR,
		Outputs: []logging.LogOutput{logging.NewJSONOutput(io.Discard)},
	})
	return New(dm, rep, log)
}

func TestBeginReadCommit(t *testing.T) {
	var buf bytes.Buffer
	m := testManager(&buf)

	m.Begin("T1", 0)
	if res := m.Read("T1", "x2", 1); res != Success {
		t.Fatalf("expected successful read, got %v", res)
	}
	if res := m.End("T1", 2); res != Success {
		t.Fatalf("expected commit to succeed, got %v", res)
	}

	if !bytes.Contains(buf.Bytes(), []byte("x2: 20")) {
		t.Fatalf("expected read output, got %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("Commit: T1")) {
		t.Fatalf("expected commit output, got %q", buf.String())
	}
}

func TestWriteThenReadSeesOwnUncommittedWrite(t *testing.T) {
	var buf bytes.Buffer
	m := testManager(&buf)

	m.Begin("T1", 0)
	if res := m.Write("T1", "x2", 99, 1); res != Success {
		t.Fatalf("expected write to succeed, got %v", res)
	}
	if res := m.Read("T1", "x2", 2); res != Success {
		t.Fatalf("expected read to succeed, got %v", res)
	}
	if !bytes.Contains(buf.Bytes(), []byte("x2: 99")) {
		t.Fatalf("expected to read own uncommitted write, got %q", buf.String())
	}
}

func TestConflictingWriteBlocks(t *testing.T) {
	var buf bytes.Buffer
	m := testManager(&buf)

	m.Begin("T1", 0)
	m.Begin("T2", 1)

	if res := m.Write("T1", "x2", 1, 1); res != Success {
		t.Fatalf("expected T1's write to succeed, got %v", res)
	}
	if res := m.Write("T2", "x2", 2, 2); res != Blocked {
		t.Fatalf("expected T2's write to block, got %v", res)
	}
	if _, waiting := m.WaitList().GetWaitObjOfT(m.byName["T2"]); !waiting {
		t.Fatalf("expected T2 to be enqueued on the wait list")
	}
}

func TestEndWhileWaitingAborts(t *testing.T) {
	var buf bytes.Buffer
	m := testManager(&buf)

	m.Begin("T1", 0)
	m.Begin("T2", 1)
	m.Write("T1", "x2", 1, 1)
	m.Write("T2", "x2", 2, 2)

	if res := m.End("T2", 3); res != Abort {
		t.Fatalf("expected ending a still-blocked transaction to abort it, got %v", res)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Abort: T2")) {
		t.Fatalf("expected abort output, got %q", buf.String())
	}
}

func TestReadOnlySeesSnapshotDespiteLaterCommit(t *testing.T) {
	var buf bytes.Buffer
	m := testManager(&buf)

	m.BeginRO("RO", 0)
	m.Begin("W", 1)
	m.Write("W", "x2", 999, 1)
	m.End("W", 2)

	if res := m.Read("RO", "x2", 3); res != Success {
		t.Fatalf("expected RO read to succeed, got %v", res)
	}
	if !bytes.Contains(buf.Bytes(), []byte("x2: 20")) {
		t.Fatalf("expected RO snapshot value x2=20 unaffected by later commit, got %q", buf.String())
	}
}

func TestAbortForcesReleaseOfLocks(t *testing.T) {
	var buf bytes.Buffer
	m := testManager(&buf)

	m.Begin("T1", 0)
	m.Write("T1", "x2", 1, 1)
	t1 := m.byName["T1"]
	m.Abort(t1, 2)

	m.Begin("T2", 3)
	if res := m.Write("T2", "x2", 2, 3); res != Success {
		t.Fatalf("expected T2's write to succeed after T1 was force-aborted, got %v", res)
	}
}
