// Package waitlist tracks transactions blocked on a lock or a down site,
// and detects deadlocks among them.
package waitlist

import "repcrec/txn"

// OpKind is the operation a WaitObject is waiting to retry.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
)

// WaitObject records one blocked retry: tx tried op(args) and was told to
// wait, blocked by the listed transactions (empty if waiting only on a
// site coming back up or a matching write committing).
type WaitObject struct {
	Tx        *txn.Transaction
	Op        OpKind
	Args      []string
	BlockedBy []*txn.Transaction
}

// WaitList is the FIFO-ordered set of currently blocked operations.
type WaitList struct {
	entries []*WaitObject
}

// New returns an empty wait list.
func New() *WaitList {
	return &WaitList{}
}

// Enqueue appends a WaitObject unless an identical (tx, op, args) entry is
// already present, and marks tx blocked.
func (wl *WaitList) Enqueue(tx *txn.Transaction, op OpKind, args []string, blockedBy []*txn.Transaction) {
	for _, e := range wl.entries {
		if e.Tx == tx && e.Op == op && sameArgs(e.Args, args) {
			return
		}
	}
	wl.entries = append(wl.entries, &WaitObject{
		Tx:        tx,
		Op:        op,
		Args:      args,
		BlockedBy: dedupe(blockedBy),
	})
	tx.Blocked = true
}

func sameArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupe(ts []*txn.Transaction) []*txn.Transaction {
	var out []*txn.Transaction
	seen := make(map[*txn.Transaction]bool)
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// GetWaitObjOfT returns the (first) WaitObject waiting on behalf of tx, if
// any.
func (wl *WaitList) GetWaitObjOfT(tx *txn.Transaction) (*WaitObject, bool) {
	for _, e := range wl.entries {
		if e.Tx == tx {
			return e, true
		}
	}
	return nil, false
}

// Remove drops a specific WaitObject from the list.
func (wl *WaitList) Remove(wo *WaitObject) {
	kept := wl.entries[:0]
	for _, e := range wl.entries {
		if e != wo {
			kept = append(kept, e)
		}
	}
	wl.entries = kept
}

// RemoveAllOfT drops every WaitObject belonging to tx.
func (wl *WaitList) RemoveAllOfT(tx *txn.Transaction) {
	kept := wl.entries[:0]
	for _, e := range wl.entries {
		if e.Tx != tx {
			kept = append(kept, e)
		}
	}
	wl.entries = kept
}

// List returns the wait list in FIFO (insertion) order. Callers must not
// retain the returned slice across a mutating call.
func (wl *WaitList) List() []*WaitObject {
	return wl.entries
}

// DeadlockDetection runs a depth-first search over the "waits-for" edges
// defined by each WaitObject's BlockedBy list. For every cycle discovered,
// the youngest transaction on that cycle (largest StartTick) is added to
// the returned victim set. The result is deduplicated.
func (wl *WaitList) DeadlockDetection() []*txn.Transaction {
	visited := make(map[*txn.Transaction]bool)
	victims := make(map[*txn.Transaction]bool)
	var order []*txn.Transaction

	for _, wo := range wl.entries {
		if visited[wo.Tx] {
			continue
		}
		if v, ok := wl.findCycleVictim(wo.Tx, []*txn.Transaction{wo.Tx}, visited); ok {
			if !victims[v] {
				victims[v] = true
				order = append(order, v)
			}
		}
	}
	return order
}

func (wl *WaitList) findCycleVictim(waiting *txn.Transaction, path []*txn.Transaction, visited map[*txn.Transaction]bool) (*txn.Transaction, bool) {
	wo, ok := wl.GetWaitObjOfT(waiting)
	if !ok {
		return nil, false
	}
	visited[waiting] = true
	for _, waitFor := range wo.BlockedBy {
		if idx := indexOf(path, waitFor); idx >= 0 {
			return youngest(path[idx:]), true
		}
		nextPath := make([]*txn.Transaction, len(path), len(path)+1)
		copy(nextPath, path)
		nextPath = append(nextPath, waitFor)
		if v, ok := wl.findCycleVictim(waitFor, nextPath, visited); ok {
			return v, true
		}
	}
	return nil, false
}

func indexOf(path []*txn.Transaction, t *txn.Transaction) int {
	for i, p := range path {
		if p == t {
			return i
		}
	}
	return -1
}

func youngest(cycle []*txn.Transaction) *txn.Transaction {
	y := cycle[0]
	for _, t := range cycle[1:] {
		if t.StartTick > y.StartTick {
			y = t
		}
	}
	return y
}
