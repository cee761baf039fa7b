// Package report renders the simulator's unconditional, line-oriented
// output: successful reads, write acceptances, commits/aborts, blocked
// notices, and site dumps.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Reporter writes literal event lines to an underlying writer.
type Reporter struct {
	w io.Writer
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Read reports a successful read of a variable's value.
func (r *Reporter) Read(variable string, value int) {
	fmt.Fprintf(r.w, "%s: %d\n", variable, value)
}

// Write reports a write accepted at one site.
func (r *Reporter) Write(siteID, tx, variable string, value int) {
	fmt.Fprintf(r.w, "Site %s: %s write %s=%d\n", siteID, tx, variable, value)
}

// Abort reports a transaction abort.
func (r *Reporter) Abort(tx string) {
	fmt.Fprintf(r.w, "Abort: %s\n", tx)
}

// Commit reports a transaction commit.
func (r *Reporter) Commit(tx string) {
	fmt.Fprintf(r.w, "Commit: %s\n", tx)
}

// BlockedByLocks reports a transaction blocked on a lock conflict, naming
// the sorted, deduplicated set of blocking transaction names.
func (r *Reporter) BlockedByLocks(tx string, blockers []string) {
	sorted := dedupeSorted(blockers)
	fmt.Fprintf(r.w, "Transaction %s blocked by a lock conflict. Locks: %s\n", tx, formatList(sorted))
}

// BlockedBySiteDown reports a transaction blocked because no site holding
// the variable it needs is currently up.
func (r *Reporter) BlockedBySiteDown(tx string) {
	fmt.Fprintf(r.w, "Transaction %s blocked because site is down.\n", tx)
}

// SiteEntry is one variable's value at a site, for Dump formatting.
type SiteEntry struct {
	Variable string
	Value    int
}

// Dump prints one line per site: "Site <id> - x1: v1, x2: v2, …", with
// entries sorted by the variable's numeric suffix.
func (r *Reporter) Dump(siteID string, entries []SiteEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return numericSuffix(entries[i].Variable) < numericSuffix(entries[j].Variable)
	})
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s: %d", e.Variable, e.Value)
	}
	fmt.Fprintf(r.w, "Site %s - %s\n", siteID, strings.Join(parts, ", "))
}

func numericSuffix(name string) int {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0
	}
	return n
}

func dedupeSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func formatList(names []string) string {
	return "[" + strings.Join(quoteAll(names), ", ") + "]"
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "'" + n + "'"
	}
	return out
}
