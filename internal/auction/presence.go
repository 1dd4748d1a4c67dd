package auction

import "time"

// Touch upserts the participant's presence entry and reports whether the
// aggregate changed.
//
// Anonymous polls (empty ID or name) are ignored. An existing entry younger
// than refreshThrottle is left alone - connectivity is approximate anyway,
// and skipping the write keeps high-frequency polling from persisting the
// aggregate on every read.
func (s *State) Touch(id, name string, now time.Time, refreshThrottle time.Duration) bool {
	if id == "" || name == "" {
		return false
	}
	if existing, ok := s.Presence[id]; ok {
		if now.Sub(existing.LastSeenAt) < refreshThrottle {
			return false
		}
	}
	s.Presence[id] = PresenceEntry{ParticipantName: name, LastSeenAt: now}
	return true
}

// SweepPresence removes every entry whose LastSeenAt is older than expiry.
// Returns the number of entries removed.
func (s *State) SweepPresence(now time.Time, expiry time.Duration) int {
	removed := 0
	for id, p := range s.Presence {
		if now.Sub(p.LastSeenAt) >= expiry {
			delete(s.Presence, id)
			removed++
		}
	}
	return removed
}
