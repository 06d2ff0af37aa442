package dto

import "time"

// CreateCommentRequest appends a comment to a ticket's thread.
type CreateCommentRequest struct {
	TicketID string `json:"ticket_id"`
	Message  string `json:"message"`
}

// CommentResponse is one thread entry with author identity attached.
type CommentResponse struct {
	ID        string        `json:"id"`
	TicketID  string        `json:"ticket_id"`
	Message   string        `json:"message"`
	Author    *UserResponse `json:"author,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
