package sync

import "sync"

// Session holds the client-side identity state: the current user id
// and its signed credential. The identity provider itself is external;
// this is only the holder the engine consults. The user may be absent
// (logged out) or change at any time.
type Session struct {
	mu       sync.RWMutex
	userID   string
	token    string
	watchers []chan string
}

// Set binds the session to a user. Watchers are notified with the new
// user id. Notification happens under the lock so sends stay ordered
// and never block: each channel holds at most the latest value.
func (s *Session) Set(userID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.token = token
	notify(s.watchers, userID)
}

// Clear logs the session out. Watchers are notified with an empty id.
func (s *Session) Clear() {
	s.Set("", "")
}

// CurrentUserID returns the current user id, or "" when logged out.
func (s *Session) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Token returns the current signed credential.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Watch returns a channel receiving the user id on every change.
// Slow consumers only miss intermediate values: the channel keeps the
// latest pending notification.
func (s *Session) Watch() <-chan string {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func notify(watchers []chan string, userID string) {
	for _, ch := range watchers {
		// Drop the stale pending value so the latest one wins.
		select {
		case <-ch:
		default:
		}
		ch <- userID
	}
}
