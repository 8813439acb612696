// Package domain contains core domain types for the lobby service.
package domain

import (
	"time"
)

// InviteStatus is the lifecycle state of a friend invite.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Valid reports whether s is a known invite status.
func (s InviteStatus) Valid() bool {
	switch s {
	case InvitePending, InviteAccepted, InviteDeclined:
		return true
	}
	return false
}

// Invite is a friend invite between two users. Invites are independent
// of presence state; they carry no expiry and no concurrency concerns
// beyond plain CRUD.
type Invite struct {
	ID         string       `json:"id"`
	FromUserID string       `json:"from_user_id"`
	ToUserID   string       `json:"to_user_id"`
	Status     InviteStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// CanTransitionTo reports whether the invite may move to the target
// status. Only pending invites can be resolved, and only to a terminal
// state.
func (i *Invite) CanTransitionTo(target InviteStatus) bool {
	if i.Status != InvitePending {
		return false
	}
	return target == InviteAccepted || target == InviteDeclined
}
