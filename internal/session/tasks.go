package session

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/selector"
)

// Every behavior stops at the first failed call and returns its error;
// Step logs it. Local state only changes after a call succeeded.

func (s *Session) chance(p float64) bool {
	return selector.Chance(s.rng, p)
}

func (s *Session) interactWithDishes(ctx context.Context) error {
	if len(s.dishIDs) == 0 {
		s.log.Warn("no dishes known, skipping dish task")
		return nil
	}

	dishID := selector.Pick(s.rng, s.dishIDs)
	s.log.Debug("viewing dish", zap.Int64("dish_id", dishID))
	if err := s.api.ViewDish(ctx, dishID); err != nil {
		return err
	}

	// The unlike draw only happens when the like draw missed.
	switch {
	case s.chance(s.behavior.LikeDish):
		s.log.Info("liking dish", zap.Int64("dish_id", dishID))
		return s.api.LikeDish(ctx, dishID, s.userID)
	case s.chance(s.behavior.UnlikeDish):
		s.log.Info("unliking dish", zap.Int64("dish_id", dishID))
		return s.api.UnlikeDish(ctx, dishID, s.userID)
	}
	return nil
}

func (s *Session) manageReviews(ctx context.Context) error {
	if len(s.dishIDs) > 0 && s.chance(s.behavior.CreateReview) {
		review := api.Review{
			Content:    s.faker.ReviewText(),
			IsPositive: s.faker.Bool(),
			UserID:     s.userID,
			DishID:     selector.Pick(s.rng, s.dishIDs),
		}
		s.log.Info("creating review", zap.Int64("dish_id", review.DishID))

		id, err := s.api.PostReview(ctx, review)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.reviewIDs = append(s.reviewIDs, id)
		s.mu.Unlock()
		s.log.Info("review created", zap.Int64("review_id", id))
	}

	if len(s.reviewIDs) == 0 {
		return nil
	}

	reviewID := selector.Pick(s.rng, s.reviewIDs)
	s.log.Debug("interacting with review", zap.Int64("review_id", reviewID))

	var err error
	switch {
	case s.chance(s.behavior.LikeReview):
		s.log.Info("liking review", zap.Int64("review_id", reviewID))
		err = s.api.LikeReview(ctx, reviewID, s.userID)
	case s.chance(s.behavior.UnlikeReview):
		s.log.Info("unliking review", zap.Int64("review_id", reviewID))
		err = s.api.UnlikeReview(ctx, reviewID, s.userID)
	}
	if err != nil {
		return err
	}

	return s.api.ViewReview(ctx, reviewID)
}

func (s *Session) socialInteractions(ctx context.Context) error {
	s.log.Debug("searching friends")
	found, err := s.api.SearchUsers(ctx, s.faker.SearchTerm())
	if err != nil {
		return err
	}

	candidates := slices.DeleteFunc(found, func(id int64) bool { return id == s.userID })
	if len(candidates) > 0 {
		if err := s.befriend(ctx, selector.Pick(s.rng, candidates)); err != nil {
			return err
		}
	}

	if s.friendCount() > 0 {
		s.log.Debug("listing friends")
		return s.api.Friends(ctx, s.userID)
	}
	return nil
}

// befriend adds candidate or drops a random existing friend.
func (s *Session) befriend(ctx context.Context, candidate int64) error {
	switch {
	case s.chance(s.behavior.AddFriend) && !s.isFriend(candidate):
		s.log.Info("adding friend", zap.Int64("friend_id", candidate))
		if err := s.api.AddFriend(ctx, s.userID, candidate); err != nil {
			return err
		}
		s.mu.Lock()
		s.friends[candidate] = struct{}{}
		s.mu.Unlock()

	case s.chance(s.behavior.RemoveFriend) && s.friendCount() > 0:
		s.mu.Lock()
		ids := slices.Sorted(maps.Keys(s.friends))
		s.mu.Unlock()
		friendID := selector.Pick(s.rng, ids)

		s.log.Info("removing friend", zap.Int64("friend_id", friendID))
		if err := s.api.RemoveFriend(ctx, s.userID, friendID); err != nil {
			return err
		}
		s.mu.Lock()
		delete(s.friends, friendID)
		s.mu.Unlock()
	}
	return nil
}

func (s *Session) profileOperations(ctx context.Context) error {
	if s.chance(s.behavior.UpdateProfile) {
		s.log.Info("updating profile")
		if err := s.api.UpdateProfile(ctx, s.faker.Profile(s.userID)); err != nil {
			return err
		}
	}

	s.log.Debug("fetching recommendations")
	if err := s.api.Recommendations(ctx, s.userID); err != nil {
		return err
	}

	s.log.Debug("fetching feed")
	return s.api.Feed(ctx, s.userID)
}

func (s *Session) isFriend(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.friends[id]
	return ok
}

func (s *Session) friendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.friends)
}
