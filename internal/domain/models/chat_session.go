package models

import "time"

// PendingAction is the multi-step chat command a user is in the middle of.
type PendingAction string

const (
	PendingNone        PendingAction = ""
	PendingDescription PendingAction = "description"
	PendingClose       PendingAction = "close"
)

// ChatSession holds the pending action of one chat user.
type ChatSession struct {
	RequesterID int64         `json:"requester_id"`
	Pending     PendingAction `json:"pending"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
