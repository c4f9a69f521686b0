package survey

// Identity is the resolved voter for one request: an authenticated user id
// when available, always backed by the anonymous (IP, session token) pair.
// Two identities belong to the same voter if the user id, the IP or the
// session token matches; first match wins.
type Identity struct {
	UserID  *uint
	IP      string
	Session string
}

// voterClause builds the inclusive-OR match condition for votes and
// open_responses. A user id match counts even if the request now arrives
// from a different IP or session, and vice versa.
func (id Identity) voterClause() (string, []interface{}) {
	if id.UserID != nil {
		return "(voter_ip = ? OR voter_session = ? OR user_id = ?)",
			[]interface{}{id.IP, id.Session, *id.UserID}
	}
	return "(voter_ip = ? OR voter_session = ?)", []interface{}{id.IP, id.Session}
}

// likerClause matches survey_likes rows. Keyed by IP or session only, never
// by user id alone, so anonymous and authenticated flows hit the same row.
func (id Identity) likerClause() (string, []interface{}) {
	return "(user_ip = ? OR user_session = ?)", []interface{}{id.IP, id.Session}
}

// storedUserID returns the user id to persist on a response row. Anonymous
// surveys force it to nil even for authenticated callers.
func (id Identity) storedUserID(anonymous bool) *uint {
	if anonymous {
		return nil
	}
	return id.UserID
}
