// Package datamgr routes variable access across the site topology: it
// decides which sites hold a copy of a variable, and implements the
// available-copies rule for reads and writes.
package datamgr

import (
	"regexp"
	"strconv"

	"repcrec/site"
	"repcrec/txn"
)

var suffixRE = regexp.MustCompile(`[0-9]+$`)

// DataManager owns the full set of sites and routes reads/writes to the
// right ones.
type DataManager struct {
	Sites []*site.Site
}

// New builds the initial topology: numSites sites, numVars variables named
// x1..xN. Odd-indexed variables live on a single site ((i mod numSites)+1);
// even-indexed variables are replicated to every site. All variables start
// at value 10*i.
func New(numSites, numVars int) *DataManager {
	dm := &DataManager{}
	byID := make(map[string]*site.Site, numSites)
	for i := 1; i <= numSites; i++ {
		id := strconv.Itoa(i)
		s := site.New(id, nil)
		byID[id] = s
		dm.Sites = append(dm.Sites, s)
	}

	for i := 1; i <= numVars; i++ {
		name := "x" + strconv.Itoa(i)
		value := 10 * i
		if home := dm.SiteIndex(name); home != "" {
			byID[home].Committed[name] = site.NewVariable(name, value, home)
			continue
		}
		for _, s := range dm.Sites {
			s.Committed[name] = site.NewVariable(name, value, "")
		}
	}
	return dm
}

// SiteIndex returns the home site ID for a non-replicated variable, or ""
// if x is replicated (even-indexed).
func (dm *DataManager) SiteIndex(x string) string {
	match := suffixRE.FindString(x)
	if match == "" {
		return ""
	}
	i, err := strconv.Atoi(match)
	if err != nil || i%2 == 0 {
		return ""
	}
	return strconv.Itoa((i % len(dm.Sites)) + 1)
}

// AvailableSites returns every site currently up.
func (dm *DataManager) AvailableSites() []*site.Site {
	var out []*site.Site
	for _, s := range dm.Sites {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// AvailableSitesFor returns the candidate sites for accessing x: the sole
// home site (if up and holding x) for a non-replicated variable, else every
// active site holding x.
func (dm *DataManager) AvailableSitesFor(x string) []*site.Site {
	if home := dm.SiteIndex(x); home != "" {
		for _, s := range dm.Sites {
			if s.ID == home && s.Active && s.Contains(x) {
				return []*site.Site{s}
			}
		}
		return nil
	}
	var out []*site.Site
	for _, s := range dm.AvailableSites() {
		if s.Contains(x) {
			out = append(out, s)
		}
	}
	return out
}

// RequestReadOnly returns the frozen snapshot value of x for a read-only
// transaction, scanning candidate sites for one whose snapshot is usable.
func (dm *DataManager) RequestReadOnly(tx *txn.Transaction, x string) (*site.Variable, bool) {
	candidates := dm.AvailableSitesFor(x)
	if len(candidates) == 0 {
		return nil, false
	}
	if dm.SiteIndex(x) != "" {
		return candidates[0].ReadOnly(tx, x)
	}
	for _, s := range candidates {
		if s.AvailableToReadOnly(tx) {
			if v, ok := s.ReadOnly(tx, x); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// RequestRead attempts to acquire a READ lock for tx on x at any usable
// candidate site, returning the value on success, or the accumulated
// blockers on failure.
func (dm *DataManager) RequestRead(tx *txn.Transaction, x string) (value *site.Variable, blocked bool, blockers []*txn.Transaction) {
	candidates := dm.AvailableSitesFor(x)
	replicated := dm.SiteIndex(x) == ""
	for _, s := range candidates {
		if replicated && !s.AvailableToRead(tx, x) {
			continue
		}
		b := s.Lock(tx, x, site.ReadLock)
		if len(b) == 0 {
			v, _ := s.Read(tx, x)
			return v, false, nil
		}
		blockers = append(blockers, b...)
	}
	return nil, true, blockers
}

// RequestWrite applies the available-copies "acquire on all or none" rule:
// it first checks every candidate site for write-lock blockers, and only
// if none exist does it actually lock and buffer the write everywhere.
func (dm *DataManager) RequestWrite(tx *txn.Transaction, x string, val int) (blocked bool, blockers []*txn.Transaction) {
	candidates := dm.AvailableSitesFor(x)
	if len(candidates) == 0 {
		return true, nil
	}
	for _, s := range candidates {
		blockers = append(blockers, s.WriteLockBlockers(tx, x)...)
	}
	if len(blockers) > 0 {
		return true, blockers
	}
	for _, s := range candidates {
		s.Lock(tx, x, site.WriteLock)
		s.Write(tx, x, val)
	}
	return false, nil
}

// AbortOnAllSites fans tx's abort out to every site.
func (dm *DataManager) AbortOnAllSites(tx *txn.Transaction) {
	for _, s := range dm.Sites {
		s.Abort(tx)
	}
}

// CommitOnAllSites fans tx's commit out to every site at tick.
func (dm *DataManager) CommitOnAllSites(tx *txn.Transaction, tick int) {
	for _, s := range dm.Sites {
		s.Commit(tx, tick)
	}
}

// CaptureSnapshots freezes the committed store on every active site for a
// newly begun read-only transaction.
func (dm *DataManager) CaptureSnapshots(tx *txn.Transaction) {
	for _, s := range dm.AvailableSites() {
		s.CaptureROSnapshot(tx)
	}
}

// Fail brings a site down by ID. It is a no-op if the ID is unknown.
func (dm *DataManager) Fail(id string, tick int) {
	for _, s := range dm.Sites {
		if s.ID == id {
			s.Fail(tick)
			return
		}
	}
}

// Recover brings a site up by ID. It is a no-op if the ID is unknown.
func (dm *DataManager) Recover(id string, tick int) {
	for _, s := range dm.Sites {
		if s.ID == id {
			s.Recover(tick)
			return
		}
	}
}
