package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"messenger/internal/app/realtime"
	"messenger/internal/app/store"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/randx"
)

// PendingRequest is an incoming friend request with its sender.
type PendingRequest struct {
	ID        string               `json:"id"`
	FromUser  realtime.UserSummary `json:"fromUser"`
	CreatedAt time.Time            `json:"createdAt"`
}

// FriendService manages friend requests and friendships.
type FriendService struct {
	store        store.Store
	notifier     Notifier
	achievements *AchievementService
	now          func() time.Time
}

func NewFriendService(s store.Store, n Notifier, achievements *AchievementService, now func() time.Time) *FriendService {
	return &FriendService{store: s, notifier: n, achievements: achievements, now: now}
}

// SendRequest records a pending request from fromID to toID. The target gets friendRequest,
// the sender friendRequestSent.
func (s *FriendService) SendRequest(ctx context.Context, fromID, toID string) (*store.FriendRequest, error) {
	if fromID == toID {
		return nil, errs.NewError(errs.ErrSelfFriendRequest)
	}

	from, err := s.store.FindUserByID(ctx, fromID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find sender")
	}
	to, err := s.store.FindUserByID(ctx, toID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find target")
	}

	friends, err := s.store.AreFriends(ctx, fromID, toID)
	if err != nil {
		return nil, fmt.Errorf("are friends: %w", err)
	}
	if friends {
		return nil, errs.NewError(errs.ErrAlreadyFriends)
	}

	fr := &store.FriendRequest{
		ID:         randx.ID(),
		FromUserID: fromID,
		ToUserID:   toID,
		Status:     store.FriendRequestPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateFriendRequest(ctx, fr); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, errs.NewError(errs.ErrFriendRequestExists)
		}
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	s.notifier.SendToUser(toID, realtime.FriendRequest(UserSummary(from), nil))
	s.notifier.SendToUser(fromID, realtime.FriendRequestSent(UserSummary(to)))

	return fr, nil
}

// Accept accepts a pending request addressed to userID.
func (s *FriendService) Accept(ctx context.Context, userID, requestID string) (*store.FriendRequest, error) {
	fr, err := s.store.AcceptFriendRequest(ctx, requestID, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrFriendRequestNotFound, "accept friend request")
	}

	users, err := s.store.UsersByIDs(ctx, []string{fr.FromUserID, userID})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byID := usersByID(users)

	if requester, accepter := byID[fr.FromUserID], byID[userID]; requester != nil && accepter != nil {
		s.notifier.SendToUser(fr.FromUserID, realtime.FriendRequestAccepted(UserSummary(accepter)))
		s.notifier.SendToUser(userID, realtime.FriendAdded(UserSummary(requester)))
	}

	s.achievements.Award(ctx, fr.FromUserID, AchievementSocial)
	s.achievements.Award(ctx, userID, AchievementSocial)

	return fr, nil
}

// Reject rejects a pending request addressed to userID.
func (s *FriendService) Reject(ctx context.Context, userID, requestID string) (*store.FriendRequest, error) {
	fr, err := s.store.RejectFriendRequest(ctx, requestID, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrFriendRequestNotFound, "reject friend request")
	}

	rejecter, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, errs.ErrUserNotFound, "find user")
	}

	s.notifier.SendToUser(fr.FromUserID, realtime.FriendRequestRejected(UserSummary(rejecter)))

	return fr, nil
}

// Remove ends the friendship between userID and friendID and tells both sides.
func (s *FriendService) Remove(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return errs.NewError(errs.ErrSelfFriendRequest)
	}

	if err := s.store.RemoveFriendship(ctx, userID, friendID); err != nil {
		return mapNotFound(err, errs.ErrFriendNotFound, "remove friendship")
	}

	users, err := s.store.UsersByIDs(ctx, []string{userID, friendID})
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	byID := usersByID(users)

	if user, friend := byID[userID], byID[friendID]; user != nil && friend != nil {
		s.notifier.SendToUser(userID, realtime.FriendRemoved(userID, UserSummary(friend)))
		s.notifier.SendToUser(friendID, realtime.FriendRemoved(userID, UserSummary(user)))
	}

	return nil
}

// List returns userID's friends.
func (s *FriendService) List(ctx context.Context, userID string) ([]realtime.UserSummary, error) {
	friends, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return summaries(friends), nil
}

// Pending returns the requests waiting for userID's answer.
func (s *FriendService) Pending(ctx context.Context, userID string) ([]PendingRequest, error) {
	reqs, err := s.store.PendingRequestsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}

	senders, err := s.store.UsersByIDs(ctx, lo.Map(reqs, func(r *store.FriendRequest, _ int) string { return r.FromUserID }))
	if err != nil {
		return nil, fmt.Errorf("load senders: %w", err)
	}
	byID := usersByID(senders)

	out := make([]PendingRequest, 0, len(reqs))
	for _, r := range reqs {
		from, ok := byID[r.FromUserID]
		if !ok {
			continue
		}
		out = append(out, PendingRequest{ID: r.ID, FromUser: UserSummary(from), CreatedAt: r.CreatedAt})
	}
	return out, nil
}
