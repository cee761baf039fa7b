// Package txn defines the transaction entity shared by the site, datamgr,
// waitlist, and txnmgr packages.
package txn

// Transaction is a single in-flight unit of work in the simulator. It is
// created by txnmgr.Begin/BeginRO and destroyed on commit or abort.
type Transaction struct {
	Name       string
	StartTick  int
	ReadOnly   bool
	Blocked    bool
	Aborted    bool
}

// New constructs a Transaction at the given start tick.
func New(name string, startTick int, readOnly bool) *Transaction {
	return &Transaction{Name: name, StartTick: startTick, ReadOnly: readOnly}
}

// ID returns the identity triple as a comparable value, suitable for use as
// a map key or for comparing lock holders (see site's lock equality).
type ID struct {
	Name      string
	StartTick int
	ReadOnly  bool
}

// Identity returns the transaction's stable identity, independent of the
// mutable Blocked/Aborted flags.
func (t *Transaction) Identity() ID {
	return ID{Name: t.Name, StartTick: t.StartTick, ReadOnly: t.ReadOnly}
}

// String renders a transaction as just its name.
func (t *Transaction) String() string {
	return t.Name
}
