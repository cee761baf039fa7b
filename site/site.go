// Package site implements a single replica: its lock table, committed
// value store, buffered uncommitted writes, read-only snapshot store, and
// fail/recover lifecycle.
package site

import "repcrec/txn"

// Site is one replica in the topology. All methods assume single-threaded,
// cooperative access — there is exactly one call in flight at a time, driven
// by the tick loop above it.
type Site struct {
	ID             string
	Active         bool
	RecoveredAt    int
	Committed      map[string]*Variable
	PendingWrites  map[*txn.Transaction]map[string]*Variable
	LockTable      map[string][]*Lock
	ROSnapshots    map[string]map[string]*Variable
	CurrentReaders map[*txn.Transaction]struct{}
}

// New creates an initially active site with an empty lock table, seeded
// with the given committed variables.
func New(id string, variables []*Variable) *Site {
	s := &Site{
		ID:             id,
		Active:         true,
		RecoveredAt:    -1,
		Committed:      make(map[string]*Variable),
		PendingWrites:  make(map[*txn.Transaction]map[string]*Variable),
		LockTable:      make(map[string][]*Lock),
		ROSnapshots:    make(map[string]map[string]*Variable),
		CurrentReaders: make(map[*txn.Transaction]struct{}),
	}
	for _, v := range variables {
		s.Committed[v.Name] = v
	}
	return s
}

// Contains reports whether a variable name has a committed copy on this
// site.
func (s *Site) Contains(x string) bool {
	_, ok := s.Committed[x]
	return ok
}

// AvailableToRead reports whether x may be served to a non-read-only read
// by tx: x must be held here, the site must not have recovered after tx
// began, and x must have committed at or after the recovery. DataManager
// calls it only for replicated variables; reads of a non-replicated
// variable skip it entirely.
func (s *Site) AvailableToRead(tx *txn.Transaction, x string) bool {
	v, ok := s.Committed[x]
	if !ok {
		return false
	}
	if s.RecoveredAt > tx.StartTick {
		return false
	}
	return v.LastCommitTick >= s.RecoveredAt
}

// AvailableToReadOnly reports whether this site's snapshot store is safe
// for a read-only transaction that started at tx.StartTick: the site must
// not have recovered from a failure after the transaction began.
func (s *Site) AvailableToReadOnly(tx *txn.Transaction) bool {
	return s.RecoveredAt <= tx.StartTick
}

// ReadLockBlockers returns the holders that block a READ by tx on x. As a
// side effect, every returned blocker's Queued flag is set.
func (s *Site) ReadLockBlockers(tx *txn.Transaction, x string) []*txn.Transaction {
	var blockers []*txn.Transaction
	for _, lock := range s.LockTable[x] {
		writeFromOther := lock.Kind == WriteLock && lock.Holder != tx
		readAlreadyQueued := lock.Kind == ReadLock && lock.Queued
		if writeFromOther || readAlreadyQueued {
			lock.Queued = true
			blockers = append(blockers, lock.Holder)
		}
	}
	return blockers
}

// WriteLockBlockers returns the holders that block a WRITE by tx on x. As
// a side effect, every returned blocker's Queued flag is set.
func (s *Site) WriteLockBlockers(tx *txn.Transaction, x string) []*txn.Transaction {
	var blockers []*txn.Transaction
	for _, lock := range s.LockTable[x] {
		if lock.Holder != tx || (lock.Kind == ReadLock && lock.Queued) {
			lock.Queued = true
			blockers = append(blockers, lock.Holder)
		}
	}
	return blockers
}

// Lock attempts to acquire kind on x for tx. On success it returns nil. On
// failure it returns the (non-empty) list of blocking transactions and adds
// or removes no lock; only the blockers' Queued flags are set.
func (s *Site) Lock(tx *txn.Transaction, x string, kind LockKind) []*txn.Transaction {
	var blockers []*txn.Transaction
	if kind == ReadLock {
		blockers = s.ReadLockBlockers(tx, x)
	} else {
		blockers = s.WriteLockBlockers(tx, x)
	}
	if len(blockers) > 0 {
		return blockers
	}

	want := &Lock{Kind: kind, Holder: tx}
	for _, existing := range s.LockTable[x] {
		if sameLock(existing, want) {
			return nil
		}
	}
	if kind == ReadLock {
		upgraded := &Lock{Kind: WriteLock, Holder: tx}
		for _, existing := range s.LockTable[x] {
			if sameLock(existing, upgraded) {
				return nil
			}
		}
	}

	if kind == WriteLock {
		kept := s.LockTable[x][:0]
		for _, existing := range s.LockTable[x] {
			if !(existing.Kind == ReadLock && existing.Holder == tx) {
				kept = append(kept, existing)
			}
		}
		s.LockTable[x] = kept
	}

	s.LockTable[x] = append(s.LockTable[x], want)
	return nil
}

// Read returns the value tx should see for x: tx's own uncommitted write if
// present, else the committed value. Absence of x is reported via ok=false.
func (s *Site) Read(tx *txn.Transaction, x string) (*Variable, bool) {
	if pending, ok := s.PendingWrites[tx]; ok {
		if v, ok := pending[x]; ok {
			return v, true
		}
	}
	v, ok := s.Committed[x]
	if !ok {
		return nil, false
	}
	s.CurrentReaders[tx] = struct{}{}
	return v, true
}

// ReadOnly returns tx's frozen snapshot value for x, if one was captured.
func (s *Site) ReadOnly(tx *txn.Transaction, x string) (*Variable, bool) {
	snapshot, ok := s.ROSnapshots[tx.Name]
	if !ok {
		return nil, false
	}
	v, ok := snapshot[x]
	return v, ok
}

// Write buffers val for x under tx, uncommitted until Commit.
func (s *Site) Write(tx *txn.Transaction, x string, val int) {
	if s.PendingWrites[tx] == nil {
		s.PendingWrites[tx] = make(map[string]*Variable)
	}
	s.PendingWrites[tx][x] = &Variable{Name: x, Value: val, LastCommitTick: -1}
}

// Commit applies tx's buffered writes to the committed store at tick and
// releases every trace of tx from this site.
func (s *Site) Commit(tx *txn.Transaction, tick int) {
	for x, v := range s.PendingWrites[tx] {
		v.LastCommitTick = tick
		if old, ok := s.Committed[x]; ok {
			v.HomeSite = old.HomeSite
		}
		s.Committed[x] = v
	}
	s.clearTransaction(tx)
}

// Abort discards tx's buffered writes and releases every trace of tx from
// this site without touching the committed store.
func (s *Site) Abort(tx *txn.Transaction) {
	s.clearTransaction(tx)
}

func (s *Site) clearTransaction(tx *txn.Transaction) {
	delete(s.CurrentReaders, tx)
	delete(s.PendingWrites, tx)
	delete(s.ROSnapshots, tx.Name)
	for x, locks := range s.LockTable {
		kept := locks[:0]
		for _, lock := range locks {
			if lock.Holder != tx {
				kept = append(kept, lock)
			}
		}
		s.LockTable[x] = kept
	}
}

// CaptureROSnapshot freezes the current committed store for tx, to be
// served by subsequent ReadOnly calls regardless of later commits.
func (s *Site) CaptureROSnapshot(tx *txn.Transaction) {
	snap := make(map[string]*Variable, len(s.Committed))
	for name, v := range s.Committed {
		snap[name] = v.Copy()
	}
	s.ROSnapshots[tx.Name] = snap
}

// Fail takes the site down: every transaction currently reading or with a
// buffered write here is marked aborted, and the lock table, reader set,
// pending writes, and read-only snapshots are all cleared. A site that went
// down cannot be trusted to keep serving the snapshots it was holding.
func (s *Site) Fail(tick int) {
	s.Active = false
	for tx := range s.CurrentReaders {
		tx.Aborted = true
	}
	for tx := range s.PendingWrites {
		tx.Aborted = true
	}
	s.CurrentReaders = make(map[*txn.Transaction]struct{})
	s.PendingWrites = make(map[*txn.Transaction]map[string]*Variable)
	s.LockTable = make(map[string][]*Lock)
	s.ROSnapshots = make(map[string]map[string]*Variable)
}

// Recover brings the site back up at tick. The lock table stays empty;
// replicated variables here remain unreadable by non-RO reads until a
// write to them commits at this site post-recovery.
func (s *Site) Recover(tick int) {
	s.Active = true
	s.RecoveredAt = tick
}
