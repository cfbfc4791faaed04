package server

import (
	"errors"
	"testing"
	"time"
)

func TestLivenessMonitor_ForceTerminatesRemovedAccount(t *testing.T) {
	accounts := newStubAccounts()
	accounts.accounts["bob"] = stubAccount{password: "pw"}
	c := startSession(t, accounts, newStubMessages(), 20*time.Millisecond)

	if got := c.login("bob", "pw"); got != "Login successful. Admin: false" {
		t.Fatalf("login response = %q", got)
	}

	accounts.markRemoved("bob")

	// The notice must arrive before the connection closes.
	if got := c.read(); got != RemovalNotice {
		t.Fatalf("notice = %q, want %q", got, RemovalNotice)
	}

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("session not terminated after removal")
	}
	if id := c.sess.Identity(); id != "" {
		t.Fatalf("identity not cleared: %q", id)
	}
}

func TestLivenessMonitor_AnonymousSessionNotChecked(t *testing.T) {
	accounts := newStubAccounts()
	startSession(t, accounts, newStubMessages(), 10*time.Millisecond)

	time.Sleep(60 * time.Millisecond)

	accounts.mu.Lock()
	calls := accounts.isRemovedCalls
	accounts.mu.Unlock()
	if calls != 0 {
		t.Fatalf("liveness check ran %d times while anonymous", calls)
	}
}

func TestLivenessMonitor_StoreErrorDoesNotTerminate(t *testing.T) {
	accounts := newStubAccounts()
	accounts.accounts["bob"] = stubAccount{password: "pw"}
	accounts.isRemovedErr = errors.New("store unavailable")
	c := startSession(t, accounts, newStubMessages(), 10*time.Millisecond)
	c.login("bob", "pw")

	time.Sleep(50 * time.Millisecond)

	// The session is still alive and responsive.
	if got := c.roundTrip("LOGOUT"); got != "Logout successful" {
		t.Fatalf("response = %q", got)
	}
}

func TestLivenessMonitor_SurvivesLogout(t *testing.T) {
	// The monitor outlives authentication changes within the session: a
	// second login after a logout is still watched.
	accounts := newStubAccounts()
	accounts.accounts["bob"] = stubAccount{password: "pw"}
	c := startSession(t, accounts, newStubMessages(), 20*time.Millisecond)

	c.login("bob", "pw")
	c.roundTrip("LOGOUT")
	c.login("bob", "pw")

	accounts.markRemoved("bob")
	if got := c.read(); got != RemovalNotice {
		t.Fatalf("notice = %q, want %q", got, RemovalNotice)
	}
}
