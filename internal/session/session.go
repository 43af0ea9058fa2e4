package session

import (
	"sync"
	"time"
)

// Session is an authenticated identity plus its opaque bearer credential.
type Session struct {
	Email     string
	Token     string
	DeviceID  string
	CreatedAt time.Time
}

// Change describes a signed-in/signed-out transition observed on an Authority.
type Change struct {
	SignedIn bool
	Token    string
}

// Authority owns the current signed-in state and fans transitions out to
// subscribers. It never talks to the network itself; callers feed it sessions
// obtained from the Client and it only reports what it was told.
type Authority struct {
	mu      sync.Mutex
	current *Session
	subs    []chan Change
}

// NewAuthority returns an Authority with no signed-in session.
func NewAuthority() *Authority {
	return &Authority{}
}

// Current returns a copy of the active session, if any.
func (a *Authority) Current() (Session, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Session{}, false
	}
	return *a.current, true
}

// SignIn installs the session and notifies subscribers. Signing in while
// already signed in replaces the session (a sign-out change is emitted first
// so observers tear down state tied to the previous credential).
func (a *Authority) SignIn(s Session) {
	a.mu.Lock()
	if a.current != nil {
		a.broadcastLocked(Change{SignedIn: false})
	}
	copied := s
	a.current = &copied
	a.broadcastLocked(Change{SignedIn: true, Token: s.Token})
	a.mu.Unlock()
}

// SignOut clears the session and notifies subscribers. Safe to call when
// already signed out.
func (a *Authority) SignOut() {
	a.mu.Lock()
	if a.current != nil {
		a.current = nil
		a.broadcastLocked(Change{SignedIn: false})
	}
	a.mu.Unlock()
}

// Watch registers a subscriber. The returned channel carries every transition
// in order; when a slow subscriber falls behind, the oldest pending change is
// dropped so sign-out events are never blocked behind a stalled reader.
func (a *Authority) Watch() <-chan Change {
	ch := make(chan Change, 16)
	a.mu.Lock()
	a.subs = append(a.subs, ch)
	a.mu.Unlock()
	return ch
}

func (a *Authority) broadcastLocked(change Change) {
	for _, ch := range a.subs {
		for {
			select {
			case ch <- change:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
