// Package driver runs the tick-driven simulation loop: for each trace
// operation it resolves any pending deadlock, drains the wait list to a
// fixpoint, then dispatches the operation itself.
package driver

import (
	"fmt"
	"strconv"

	"repcrec/datamgr"
	"repcrec/internal/simerrors"
	"repcrec/logging"
	"repcrec/trace"
	"repcrec/txnmgr"
	"repcrec/waitlist"
)

// Driver owns the logical tick and drives the transaction manager through
// a sequence of trace operations.
type Driver struct {
	Tick       int
	dm         *datamgr.DataManager
	mgr        *txnmgr.Manager
	log        *logging.StructuredLogger
	lastResult txnmgr.Result
}

// New builds a driver starting at tick 0.
func New(dm *datamgr.DataManager, mgr *txnmgr.Manager, log *logging.StructuredLogger) *Driver {
	return &Driver{dm: dm, mgr: mgr, log: log, lastResult: txnmgr.Success}
}

// Run executes every op in order.
func (d *Driver) Run(ops []trace.Op) {
	for _, op := range ops {
		d.Step(op)
	}
}

// Step executes one trace operation, including its preceding deadlock
// resolution and wait-list drain passes.
func (d *Driver) Step(op trace.Op) {
	if d.lastResult == txnmgr.Blocked {
		d.resolveDeadlocks()
	}
	d.drainWaitList()

	d.lastResult = d.dispatch(op)
	d.Tick++
}

// resolveDeadlocks runs deadlock detection repeatedly, aborting every
// victim found, until a pass produces no victims.
func (d *Driver) resolveDeadlocks() {
	for {
		victims := d.mgr.WaitList().DeadlockDetection()
		if len(victims) == 0 {
			return
		}
		for _, v := range victims {
			d.mgr.Abort(v, d.Tick)
		}
	}
}

// drainWaitList retries every wait-list entry in FIFO order, repeating
// from the start until a full pass makes no progress.
func (d *Driver) drainWaitList() {
	wl := d.mgr.WaitList()
	for {
		progressed := false
		for _, wo := range snapshot(wl.List()) {
			var result txnmgr.Result
			switch wo.Op {
			case waitlist.OpRead:
				result = d.mgr.Read(wo.Tx.Name, wo.Args[0], d.Tick)
			case waitlist.OpWrite:
				v, err := strconv.Atoi(wo.Args[1])
				if err != nil {
					continue
				}
				result = d.mgr.Write(wo.Tx.Name, wo.Args[0], v, d.Tick)
			}
			if result != txnmgr.Blocked {
				progressed = true
				d.Tick++
				// Success clears itself via Manager.clearWait; Abort/Stop
				// leave the entry behind, so remove it here regardless of
				// outcome to guarantee forward progress.
				wl.Remove(wo)
			}
		}
		if !progressed {
			return
		}
	}
}

func snapshot(entries []*waitlist.WaitObject) []*waitlist.WaitObject {
	out := make([]*waitlist.WaitObject, len(entries))
	copy(out, entries)
	return out
}

// minArgs reports whether op carries at least n arguments, logging a FATAL
// SimError and returning false for a recognized-but-malformed line instead
// of letting a blind index panic the run.
func (d *Driver) minArgs(op trace.Op, n int) bool {
	if len(op.Args) >= n {
		return true
	}
	err := simerrors.NewFatal(d.Tick, op.Name, fmt.Sprintf("expected at least %d argument(s), got %d", n, len(op.Args)))
	d.log.Warn(err.Error())
	return false
}

// dispatch executes one trace operation against the transaction manager or
// data manager. Unknown operations are skipped; malformed ones are logged
// and treated as Stop without terminating the run.
func (d *Driver) dispatch(op trace.Op) txnmgr.Result {
	switch op.Name {
	case "begin":
		if !d.minArgs(op, 1) {
			return txnmgr.Stop
		}
		d.mgr.Begin(op.Args[0], d.Tick)
	case "beginRO":
		if !d.minArgs(op, 1) {
			return txnmgr.Stop
		}
		d.mgr.BeginRO(op.Args[0], d.Tick)
	case "R":
		if !d.minArgs(op, 2) {
			return txnmgr.Stop
		}
		return d.mgr.Read(op.Args[0], op.Args[1], d.Tick)
	case "W":
		if !d.minArgs(op, 3) {
			return txnmgr.Stop
		}
		v, err := strconv.Atoi(op.Args[2])
		if err != nil {
			d.log.Warn(simerrors.NewFatal(d.Tick, "W", "non-integer write value: "+op.Args[2]).Error())
			return txnmgr.Stop
		}
		return d.mgr.Write(op.Args[0], op.Args[1], v, d.Tick)
	case "end":
		if !d.minArgs(op, 1) {
			return txnmgr.Stop
		}
		return d.mgr.End(op.Args[0], d.Tick)
	case "fail":
		if !d.minArgs(op, 1) {
			return txnmgr.Stop
		}
		d.dm.Fail(op.Args[0], d.Tick)
	case "recover":
		if !d.minArgs(op, 1) {
			return txnmgr.Stop
		}
		d.dm.Recover(op.Args[0], d.Tick)
	case "dump":
		var variable string
		if len(op.Args) > 0 {
			variable = op.Args[0]
		}
		d.mgr.Dump(variable)
	default:
		d.log.WarnWithMetadata("skipping unknown operation", map[string]interface{}{"op": op.Name, "tick": d.Tick})
	}
	return txnmgr.Success
}
