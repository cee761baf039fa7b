package site

// Variable is a named data item with its last committed value.
//
// HomeSite names the sole site holding a non-replicated variable; it is
// empty for a replicated variable, which lives on every site. DataManager
// stamps it when it builds the initial topology.
type Variable struct {
	Name           string
	Value          int
	LastCommitTick int
	HomeSite       string
}

// NewVariable creates a freshly-initialized, never-committed variable.
func NewVariable(name string, value int, homeSite string) *Variable {
	return &Variable{Name: name, Value: value, LastCommitTick: -1, HomeSite: homeSite}
}

// Copy returns a value copy, used when snapshotting the committed store for
// a read-only transaction.
func (v *Variable) Copy() *Variable {
	cp := *v
	return &cp
}
