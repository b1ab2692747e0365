package segchat

import "time"

// Session represents one conversation bound to an uploaded source image.
// A Session is not safe for concurrent use; callers serialize access per
// session id (see the store package's Acquire).
type Session struct {
	ID           string
	SystemPrompt string
	ImagePath    string
	Messages     []Message
	ResultCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Append adds a turn to the transcript. No validation beyond structural
// shape is performed.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// NextResultSeq increments and returns the session's artifact sequence
// counter. Sequence numbers are never reused and strictly increase with
// each artifact-producing tool execution.
func (s *Session) NextResultSeq() int {
	s.ResultCount++
	return s.ResultCount
}
