package negotiation

import "sort"

// Session is the negotiation state of one request. It is owned by the
// lifecycle engine and only mutated under the request's lock.
type Session struct {
	// DeclineCount counts declines against the current technician.
	DeclineCount int
	// HasReceivedRevision is set once the current technician sent a revision.
	HasReceivedRevision bool

	blacklist map[string]struct{}
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{blacklist: make(map[string]struct{})}
}

// Exclude adds ids to the blacklist. The blacklist never shrinks.
func (s *Session) Exclude(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s.blacklist[id] = struct{}{}
		}
	}
}

// Excluded reports whether id is blacklisted.
func (s *Session) Excluded(id string) bool {
	_, ok := s.blacklist[id]
	return ok
}

// Blacklist returns a copy of the excluded ids.
func (s *Session) Blacklist() map[string]struct{} {
	out := make(map[string]struct{}, len(s.blacklist))
	for id := range s.blacklist {
		out[id] = struct{}{}
	}
	return out
}

// BlacklistIDs returns the excluded ids sorted.
func (s *Session) BlacklistIDs() []string {
	ids := make([]string, 0, len(s.blacklist))
	for id := range s.blacklist {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// reset clears the per-technician counters.
func (s *Session) reset() {
	s.DeclineCount = 0
	s.HasReceivedRevision = false
}

// AwaitingRevision reports whether a revised quote from the current
// technician is still due.
func (s *Session) AwaitingRevision() bool {
	return s.DeclineCount == 1 && s.HasReceivedRevision
}
