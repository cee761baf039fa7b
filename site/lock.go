package site

import "repcrec/txn"

// LockKind is the mode of a Lock: shared (READ) or exclusive (WRITE).
type LockKind int

const (
	ReadLock LockKind = iota
	WriteLock
)

func (k LockKind) String() string {
	if k == WriteLock {
		return "WRITE"
	}
	return "READ"
}

// Lock is a tuple (kind, holder, queued) recording a lock held by a
// transaction on one variable at one site.
//
// Equality is by (Kind, Holder identity) only — Queued is mutable metadata
// set when a would-be locker discovers this lock as a blocker, and cleared
// only when the lock itself is removed.
type Lock struct {
	Kind   LockKind
	Holder *txn.Transaction
	Queued bool
}

// sameLock reports whether two locks are the same (kind, holder) pair,
// ignoring the Queued flag.
func sameLock(a, b *Lock) bool {
	return a.Kind == b.Kind && a.Holder.Identity() == b.Holder.Identity()
}
