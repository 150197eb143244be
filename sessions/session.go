package sessions

import "time"

// Session is the locally held proof of authentication issued by the identity
// provider after a completed attempt. The token is opaque to this process.
type Session struct {
	Token       string    // Provider session id
	UserID      string    // Provider user id, when the attempt reported one
	ActivatedAt time.Time // When this process made the session active
}

// Store holds the single active session of the process. Replace is the only
// mutator and is reserved for session activation; readers never observe a
// partially written session.
type Store interface {
	// Replace makes session the active one and returns the one it superseded
	Replace(session Session) (previous *Session)

	// Current returns the active session, if any
	Current() (Session, bool)
}
