package models

// Session is one persisted conversation together with the partner profile
// edited in the sidebar. The JSON tags match the on-disk session file format.
type Session struct {
	ID       string    `json:"current_session"`
	Nickname string    `json:"nickname"`
	Nature   string    `json:"nature"`
	Messages []Message `json:"messages"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the live message slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Messages = make([]Message, len(s.Messages))
	copy(copied.Messages, s.Messages)
	return &copied
}
