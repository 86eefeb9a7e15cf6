package main

import (
	"net/http"

	"github.com/google/uuid"
)

const sessionName = "quizforge"

// sessionID returns the caller's session identifier, minting and persisting a
// new one in the cookie on first contact.
func (s *server) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := s.cookies.Get(r, sessionName)
	if err != nil {
		// A tampered or stale cookie yields a fresh session instead of an
		// error for the caller.
		s.logger.Warn("discarding unreadable session cookie", "error", err)
		sess, _ = s.cookies.New(r, sessionName)
	}

	if id, ok := sess.Values["id"].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	sess.Values["id"] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}
