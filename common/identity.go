package common

import (
	"fmt"
	"strconv"
)

const (
	PrefixLength = 4
)

// RoleType defines the actor role in the marketplace.
type RoleType string

const (
	RoleBuyer  RoleType = "buyer"
	RoleSeller RoleType = "seller"
)

// Actor represents a marketplace identity that maps to a chat user id.
type Actor struct {
	Id   int64
	Role RoleType
}

// ToChatUserId converts an Actor to the messaging core's string user id.
//
//	Actor{Id: 42, Role: RoleBuyer}.ToChatUserId()  => "by__42"
//	Actor{Id: 7, Role: RoleSeller}.ToChatUserId()  => "sl__7"
func (a *Actor) ToChatUserId() (string, error) {
	switch a.Role {
	case RoleBuyer:
		return fmt.Sprintf("by__%d", a.Id), nil
	case RoleSeller:
		return fmt.Sprintf("sl__%d", a.Id), nil
	default:
		return "", fmt.Errorf("failed to transfer actor to user id, role: %s", a.Role)
	}
}

// FromChatUserId parses a chat user id string back into an Actor.
// Returns an error if the format is unrecognised.
func (a *Actor) FromChatUserId(userId string) error {
	if a == nil {
		return fmt.Errorf("actor is nil")
	}
	if len(userId) < PrefixLength+1 {
		return fmt.Errorf("invalid userId: %q", userId)
	}
	prefix := userId[:PrefixLength]
	idStr := userId[PrefixLength:]
	switch prefix {
	case "by__":
		a.Role = RoleBuyer
	case "sl__":
		a.Role = RoleSeller
	default:
		return fmt.Errorf("unknown prefix: %q", prefix)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id: %q", idStr)
	}
	a.Id = id
	return nil
}
