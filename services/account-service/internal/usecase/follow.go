package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/model"
	"github.com/vasapolrittideah/articles-feed-api/services/account-service/internal/repository"
)

// FollowUsecase maintains the follow graph.
type FollowUsecase interface {
	// ToggleFollow makes followerID follow targetID, or unfollow it when the edge already exists.
	// It returns the follower's updated record.
	ToggleFollow(ctx context.Context, followerID, targetID string) (*model.User, error)

	// ReconcileFollowGraph rewrites follower lists to mirror following lists and returns the number of
	// users repaired. Only the followers field is written, and a list that changed since it was read is
	// left for the next pass.
	ReconcileFollowGraph(ctx context.Context) (int, error)
}

type followUsecase struct {
	userRepo repository.UserRepository
	logger   *zerolog.Logger
	pageSize int64
}

func NewFollowUsecase(userRepo repository.UserRepository, logger *zerolog.Logger) FollowUsecase {
	return &followUsecase{
		userRepo: userRepo,
		logger:   logger,
		pageSize: 200,
	}
}

func (u *followUsecase) ToggleFollow(ctx context.Context, followerID, targetID string) (*model.User, error) {
	if followerID == targetID {
		return nil, ErrSelfFollowForbidden
	}

	follower, err := u.getUser(ctx, followerID)
	if err != nil {
		return nil, err
	}

	target, err := u.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	// Ids can differ textually (hex case) and still name the same document.
	if follower.ID == target.ID {
		return nil, ErrSelfFollowForbidden
	}

	if follower.IsFollowing(target.ID) {
		follower.Following = model.RemoveEdge(follower.Following, target.ID)
		target.Followers = model.RemoveEdge(target.Followers, follower.ID)
	} else {
		follower.Following = model.PrependEdge(follower.Following, target.ID)
		target.Followers = model.PrependEdge(model.RemoveEdge(target.Followers, follower.ID), follower.ID)
	}

	if err := u.userRepo.SaveUsers(ctx, follower, target); err != nil {
		if errors.Is(err, repository.ErrPartialWrite) {
			u.logger.Error().
				Err(err).
				Str("event", "follow_graph_partial_write").
				Str("follower_id", follower.ID.Hex()).
				Str("followee_id", target.ID.Hex()).
				Msg("follow edge written on one side only")
		}

		return nil, err
	}

	return follower, nil
}

func (u *followUsecase) ReconcileFollowGraph(ctx context.Context) (int, error) {
	// followee -> followers, in scan order.
	expected := make(map[bson.ObjectID][]bson.ObjectID)
	if err := u.eachUser(ctx, func(user *model.User) error {
		for _, edge := range user.Following {
			if edge.User == user.ID {
				continue
			}
			expected[edge.User] = append(expected[edge.User], user.ID)
		}
		return nil
	}); err != nil {
		return 0, err
	}

	repaired := 0
	err := u.eachUser(ctx, func(user *model.User) error {
		if _, added, removed := reconcileFollowers(user.Followers, expected[user.ID]); added == 0 && removed == 0 {
			return nil
		}

		// The scan is a snapshot. Confirm every follower involved against its current following list
		// so a toggle made during the pass is not undone.
		want, err := u.confirmFollowers(ctx, user.ID, user.Followers, expected[user.ID])
		if err != nil {
			return err
		}

		followers, added, removed := reconcileFollowers(user.Followers, want)
		if added == 0 && removed == 0 {
			return nil
		}

		ok, err := u.userRepo.SetFollowers(ctx, user.ID, user.Followers, followers)
		if err != nil {
			return err
		}
		if !ok {
			u.logger.Debug().
				Str("user_id", user.ID.Hex()).
				Msg("follower list changed during reconciliation, skipped")
			return nil
		}

		repaired++
		u.logger.Warn().
			Str("event", "follow_graph_repaired").
			Str("user_id", user.ID.Hex()).
			Int("added", added).
			Int("removed", removed).
			Msg("repaired follower list")

		return nil
	})

	return repaired, err
}

// confirmFollowers returns the candidates that currently follow followeeID, expected ones first.
func (u *followUsecase) confirmFollowers(
	ctx context.Context,
	followeeID bson.ObjectID,
	current []model.FollowEdge,
	expected []bson.ObjectID,
) ([]bson.ObjectID, error) {
	candidates := make([]bson.ObjectID, 0, len(expected)+len(current))
	seen := make(map[bson.ObjectID]bool, cap(candidates))
	for _, id := range expected {
		if !seen[id] {
			seen[id] = true
			candidates = append(candidates, id)
		}
	}
	for _, edge := range current {
		if !seen[edge.User] {
			seen[edge.User] = true
			candidates = append(candidates, edge.User)
		}
	}

	want := make([]bson.ObjectID, 0, len(candidates))
	for _, id := range candidates {
		if id == followeeID {
			continue
		}

		follower, err := u.userRepo.GetUser(ctx, id.Hex())
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, err
		}
		if follower.IsFollowing(followeeID) {
			want = append(want, id)
		}
	}

	return want, nil
}

// reconcileFollowers keeps the current followers that are confirmed by a following edge, in their
// current order, drops the rest and duplicates, and puts missing followers in front.
func reconcileFollowers(current []model.FollowEdge, want []bson.ObjectID) ([]model.FollowEdge, int, int) {
	wanted := make(map[bson.ObjectID]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}

	kept := make([]model.FollowEdge, 0, len(current))
	seen := make(map[bson.ObjectID]bool, len(current))
	removed := 0
	for _, edge := range current {
		if !wanted[edge.User] || seen[edge.User] {
			removed++
			continue
		}
		seen[edge.User] = true
		kept = append(kept, edge)
	}

	var missing []model.FollowEdge
	for _, id := range want {
		if !seen[id] {
			seen[id] = true
			missing = append(missing, model.FollowEdge{User: id})
		}
	}

	return append(missing, kept...), len(missing), removed
}

func (u *followUsecase) eachUser(ctx context.Context, fn func(*model.User) error) error {
	after := ""
	for {
		page, err := u.userRepo.ListUsers(ctx, repository.ListUsersParams{AfterID: after, Limit: u.pageSize})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		for _, user := range page {
			if err := fn(user); err != nil {
				return err
			}
		}

		after = page[len(page)-1].ID.Hex()
	}
}

func (u *followUsecase) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}
