package service

import (
	"context"

	"socialapi/internal/models"
	"socialapi/internal/observability"
	"socialapi/internal/repository"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// FeedService composes the personalized and explore feeds.
type FeedService struct {
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
}

func NewFeedService(postRepo repository.PostRepository, followRepo repository.FollowRepository) *FeedService {
	return &FeedService{postRepo: postRepo, followRepo: followRepo}
}

func feedLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}

// PersonalizedFeed returns the newest posts of the accounts userID follows,
// topped up with random posts from everyone else when there are fewer than
// limit. Followed posts always come first.
func (s *FeedService) PersonalizedFeed(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "feed.personalized")
	defer span.End()
	observability.FeedQueries.WithLabelValues("personalized").Inc()

	limit = feedLimit(limit)

	followingIDs, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	feed, err := s.postRepo.ListByCreators(ctx, followingIDs, limit)
	if err != nil {
		return nil, err
	}
	if len(feed) >= limit {
		return feed[:limit], nil
	}

	backfill, err := s.postRepo.RandomExcludingCreators(ctx, followingIDs, limit-len(feed))
	if err != nil {
		return nil, err
	}
	feed = append(feed, backfill...)
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// ExploreFeed ranks all posts by filter. An empty filter means recent.
func (s *FeedService) ExploreFeed(ctx context.Context, filter string, limit int) ([]*models.Post, error) {
	sort := repository.PostSort(filter)
	switch sort {
	case "":
		sort = repository.SortRecent
	case repository.SortRecent, repository.SortOldest, repository.SortMostLiked, repository.SortMostReacted:
	default:
		return nil, models.NewValidationError("filter must be one of: mostLiked, mostReacted, recent, oldest")
	}

	ctx, span := observability.StartSpan(ctx, "feed.explore")
	defer span.End()
	observability.FeedQueries.WithLabelValues("explore_" + string(sort)).Inc()

	return s.postRepo.Explore(ctx, sort, feedLimit(limit))
}
