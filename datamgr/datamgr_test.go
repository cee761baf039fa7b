package datamgr

import (
	"testing"

	"repcrec/txn"
)

func TestNewTopology(t *testing.T) {
	dm := New(10, 20)
	if len(dm.Sites) != 10 {
		t.Fatalf("expected 10 sites, got %d", len(dm.Sites))
	}

	// x2 (even) is replicated: present on every site.
	for _, s := range dm.Sites {
		if !s.Contains("x2") {
			t.Fatalf("expected x2 replicated to site %s", s.ID)
		}
	}

	// x1 (odd) lives only at site (1 mod 10)+1 = 2.
	home := dm.SiteIndex("x1")
	if home != "2" {
		t.Fatalf("expected x1's home site to be 2, got %s", home)
	}
	for _, s := range dm.Sites {
		if s.ID != home && s.Contains("x1") {
			t.Fatalf("expected x1 to live only at site %s, but found it at %s", home, s.ID)
		}
	}
}

func TestRequestWriteAllOrNone(t *testing.T) {
	dm := New(3, 4)
	t1 := txn.New("T1", 0, false)
	t2 := txn.New("T2", 1, false)

	// x2 is replicated across all 3 sites; lock it for t1 everywhere first.
	if blocked, _ := dm.RequestWrite(t1, "x2", 1); blocked {
		t.Fatalf("expected t1's write to succeed uncontended")
	}

	blocked, blockers := dm.RequestWrite(t2, "x2", 2)
	if !blocked || len(blockers) == 0 {
		t.Fatalf("expected t2 to be blocked by t1 on every replica, got blocked=%v blockers=%v", blocked, blockers)
	}

	// None of t2's write should have been buffered anywhere.
	for _, s := range dm.Sites {
		if _, ok := s.PendingWrites[t2]; ok {
			t.Fatalf("expected no partial write buffered for t2 at site %s", s.ID)
		}
	}
}

func TestRequestReadOnlyReplicatedSkipsStaleSite(t *testing.T) {
	dm := New(2, 2)
	ro := txn.New("RO", 0, true)
	dm.CaptureSnapshots(ro)

	// Fail and recover site "1" after RO began; its snapshot store should
	// no longer be trusted for this transaction.
	dm.Fail("1", 1)
	dm.Recover("1", 2)

	v, ok := dm.RequestReadOnly(ro, "x2")
	if !ok {
		t.Fatalf("expected the read-only transaction to still find a usable snapshot at site 2")
	}
	if v.Value != 20 {
		t.Fatalf("expected x2=20, got %d", v.Value)
	}
}

func TestAvailableSitesForNonReplicatedSkipsDownHome(t *testing.T) {
	dm := New(3, 2)
	home := dm.SiteIndex("x1")
	dm.Fail(home, 0)

	if sites := dm.AvailableSitesFor("x1"); len(sites) != 0 {
		t.Fatalf("expected no candidate sites for x1 while its home site is down, got %v", sites)
	}
}
