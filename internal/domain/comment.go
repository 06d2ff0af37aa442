package domain

import "time"

// Comment is an immutable entry in a ticket's thread. Comments are
// append-only and displayed ascending by creation time.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Message   string
	CreatedAt time.Time
}
