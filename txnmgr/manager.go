// Package txnmgr is the transaction manager: it owns the lifecycle of every
// in-flight transaction, dispatches reads/writes/ends to the data manager,
// and enqueues blocked operations on the wait list.
package txnmgr

import (
	"strconv"

	"repcrec/datamgr"
	"repcrec/logging"
	"repcrec/report"
	"repcrec/txn"
	"repcrec/waitlist"
)

// Result is the outcome of dispatching one operation.
type Result int

const (
	Success Result = iota
	Blocked
	Abort
	Stop
)

// Manager is the transaction manager.
type Manager struct {
	dm     *datamgr.DataManager
	waits  *waitlist.WaitList
	rep    *report.Reporter
	log    *logging.StructuredLogger
	byName map[string]*txn.Transaction
}

// New builds a transaction manager over dm, reporting events through rep
// and tracing through log, which must be non-nil.
func New(dm *datamgr.DataManager, rep *report.Reporter, log *logging.StructuredLogger) *Manager {
	return &Manager{
		dm:     dm,
		waits:  waitlist.New(),
		rep:    rep,
		log:    log,
		byName: make(map[string]*txn.Transaction),
	}
}

// WaitList exposes the underlying wait list for the driver's retry and
// deadlock-detection passes.
func (m *Manager) WaitList() *waitlist.WaitList {
	return m.waits
}

// Begin starts a read/write transaction.
func (m *Manager) Begin(name string, tick int) {
	t := txn.New(name, tick, false)
	m.byName[name] = t
	m.log.DebugWithMetadata("begin", map[string]interface{}{"tx": name, "tick": tick})
}

// BeginRO starts a read-only transaction and freezes a snapshot of every
// active site for it.
func (m *Manager) BeginRO(name string, tick int) {
	t := txn.New(name, tick, true)
	m.byName[name] = t
	m.dm.CaptureSnapshots(t)
	m.log.DebugWithMetadata("beginRO", map[string]interface{}{"tx": name, "tick": tick})
}

// Read attempts R(name, x). Result Stop means the transaction is absent or
// already aborted; the caller should silently skip it.
func (m *Manager) Read(name, x string, tick int) Result {
	t, ok := m.byName[name]
	if !ok || t.Aborted {
		return Stop
	}

	if t.ReadOnly {
		v, ok := m.dm.RequestReadOnly(t, x)
		if ok {
			m.clearWait(t)
			m.rep.Read(x, v.Value)
			return Success
		}
		if m.dm.SiteIndex(x) == "" {
			m.enqueueBlocked(t, waitlist.OpRead, []string{x}, nil)
			return Blocked
		}
		t.Aborted = true
		return Abort
	}

	v, blocked, blockers := m.dm.RequestRead(t, x)
	if !blocked {
		m.clearWait(t)
		m.rep.Read(x, v.Value)
		return Success
	}
	m.enqueueBlocked(t, waitlist.OpRead, []string{x}, blockers)
	return Blocked
}

// Write attempts W(name, x, v).
func (m *Manager) Write(name, x string, v, tick int) Result {
	t, ok := m.byName[name]
	if !ok || t.Aborted {
		return Stop
	}

	blocked, blockers := m.dm.RequestWrite(t, x, v)
	if !blocked {
		m.clearWait(t)
		for _, s := range m.dm.AvailableSitesFor(x) {
			m.rep.Write(s.ID, t.Name, x, v)
		}
		return Success
	}
	m.enqueueBlocked(t, waitlist.OpWrite, []string{x, strconv.Itoa(v)}, blockers)
	return Blocked
}

// End commits or aborts a transaction depending on its flagged state, per
// end(t, tick): absent transactions are a no-op; a still-waiting
// transaction aborts rather than commits.
func (m *Manager) End(name string, tick int) Result {
	t, ok := m.byName[name]
	if !ok {
		return Stop
	}
	if t.Aborted {
		m.doAbort(t)
		return Abort
	}
	if _, waiting := m.waits.GetWaitObjOfT(t); waiting {
		m.doAbort(t)
		return Abort
	}
	m.dm.CommitOnAllSites(t, tick)
	delete(m.byName, name)
	m.rep.Commit(name)
	return Success
}

// Abort force-aborts a transaction (used by deadlock victim selection). A
// transaction caught by a site failure is only flagged aborted there, and
// is aborted when it ends.
func (m *Manager) Abort(t *txn.Transaction, tick int) {
	m.doAbort(t)
}

func (m *Manager) doAbort(t *txn.Transaction) {
	m.dm.AbortOnAllSites(t)
	delete(m.byName, t.Name)
	m.waits.RemoveAllOfT(t)
	m.rep.Abort(t.Name)
}

func (m *Manager) enqueueBlocked(t *txn.Transaction, op waitlist.OpKind, args []string, blockers []*txn.Transaction) {
	before := len(m.waits.List())
	m.waits.Enqueue(t, op, args, blockers)
	if len(m.waits.List()) == before {
		return // already enqueued; leave the original blocked_by list stale, matching retry semantics
	}
	if len(blockers) > 0 {
		names := make([]string, len(blockers))
		for i, b := range blockers {
			names[i] = b.Name
		}
		m.rep.BlockedByLocks(t.Name, names)
	} else {
		m.rep.BlockedBySiteDown(t.Name)
	}
}

// Dump prints, for a single named variable, its value at every site that
// holds it; for an empty name, the entire committed store of every site.
func (m *Manager) Dump(variable string) {
	for _, s := range m.dm.Sites {
		var entries []report.SiteEntry
		if variable != "" {
			if v, ok := s.Committed[variable]; ok {
				entries = append(entries, report.SiteEntry{Variable: v.Name, Value: v.Value})
			} else {
				continue
			}
		} else {
			for _, v := range s.Committed {
				entries = append(entries, report.SiteEntry{Variable: v.Name, Value: v.Value})
			}
		}
		m.rep.Dump(s.ID, entries)
	}
}

func (m *Manager) clearWait(t *txn.Transaction) {
	if wo, ok := m.waits.GetWaitObjOfT(t); ok {
		m.waits.Remove(wo)
	}
	if _, stillWaiting := m.waits.GetWaitObjOfT(t); !stillWaiting {
		t.Blocked = false
	}
}
