package realtime

import (
	"context"

	domain "github.com/example/chat-backend/domain/chat"
	"golang.org/x/sync/singleflight"
)

// ParticipantChecker is the slice of the store the validator consumes.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, userID, conversationID string) (bool, string, error)
}

// MembershipValidator confirms a user's participation in a conversation
// against the durable store. Concurrent checks for the same user and
// conversation collapse into one store round-trip.
type MembershipValidator struct {
	store ParticipantChecker
	group singleflight.Group
}

// NewMembershipValidator creates a validator over the given store.
func NewMembershipValidator(store ParticipantChecker) *MembershipValidator {
	return &MembershipValidator{store: store}
}

type membershipResult struct {
	participant bool
	role        string
}

// CheckParticipant returns the user's role in the conversation, or
// domain.ErrNotAParticipant. May suspend on the store round-trip; never call
// it while holding a room lock.
func (v *MembershipValidator) CheckParticipant(ctx context.Context, userID, conversationID string) (string, error) {
	key := userID + "|" + conversationID
	res, err, _ := v.group.Do(key, func() (any, error) {
		participant, role, err := v.store.IsParticipant(ctx, userID, conversationID)
		if err != nil {
			return nil, err
		}
		return membershipResult{participant: participant, role: role}, nil
	})
	if err != nil {
		return "", err
	}

	r := res.(membershipResult)
	if !r.participant {
		return "", domain.ErrNotAParticipant
	}
	return r.role, nil
}

// CheckAdmin is CheckParticipant restricted to the admin role.
func (v *MembershipValidator) CheckAdmin(ctx context.Context, userID, conversationID string) error {
	role, err := v.CheckParticipant(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin {
		return domain.ErrNotAdmin
	}
	return nil
}
