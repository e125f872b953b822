package repository

import (
	"context"

	"socialapi/internal/cache"
	"socialapi/internal/models"

	"gorm.io/gorm"
)

// PostSort selects the ORDER BY used by Explore.
type PostSort string

const (
	SortRecent      PostSort = "recent"
	SortOldest      PostSort = "oldest"
	SortMostLiked   PostSort = "mostLiked"
	SortMostReacted PostSort = "mostReacted"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListByCreator(ctx context.Context, creatorID uint, limit, offset int) ([]*models.Post, error)
	ListByCreators(ctx context.Context, creatorIDs []uint, limit int) ([]*models.Post, error)
	RandomExcludingCreators(ctx context.Context, creatorIDs []uint, limit int) ([]*models.Post, error)
	Explore(ctx context.Context, sort PostSort, limit int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Creator").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.withDetails(readDB(r.db).WithContext(ctx)).First(&post, id).Error; err != nil {
			return findErr(err, "Post", id)
		}
		return r.attachContents(ctx, []*models.Post{&post})
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListByCreator(ctx context.Context, creatorID uint, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.creator_id = ?", creatorID).
			Order("posts.created_at DESC").
			Limit(limit).
			Offset(offset)
	})
}

func (r *postRepository) ListByCreators(ctx context.Context, creatorIDs []uint, limit int) ([]*models.Post, error) {
	if len(creatorIDs) == 0 || limit <= 0 {
		return []*models.Post{}, nil
	}
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.creator_id IN ?", creatorIDs).
			Order("posts.created_at DESC").
			Limit(limit)
	})
}

func (r *postRepository) RandomExcludingCreators(ctx context.Context, creatorIDs []uint, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		return []*models.Post{}, nil
	}
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		if len(creatorIDs) > 0 {
			db = db.Where("posts.creator_id NOT IN ?", creatorIDs)
		}
		return db.Order("RANDOM()").Limit(limit)
	})
}

func (r *postRepository) Explore(ctx context.Context, sort PostSort, limit int) ([]*models.Post, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return applySort(db, sort).Limit(limit)
	})
}

// Counter subqueries shared by the SELECT list and the explore ORDER BY.
// Ordering repeats the expression instead of the alias so a stray column of
// the same name on posts can never shadow it.
const (
	postLikesExpr     = "(SELECT COUNT(*) FROM likes WHERE likes.target_kind = 'post' AND likes.target_id = posts.id)"
	postReactionsExpr = "(SELECT COUNT(*) FROM reactions WHERE reactions.target_kind = 'post' AND reactions.target_id = posts.id)"
	postCommentsExpr  = "(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)"
)

// applySort appends the ORDER BY for the explore filter.
func applySort(db *gorm.DB, sort PostSort) *gorm.DB {
	switch sort {
	case SortMostLiked:
		return db.Order(postLikesExpr + " DESC").Order("posts.created_at DESC")
	case SortMostReacted:
		return db.Order(postReactionsExpr + " DESC").Order("posts.created_at DESC")
	case SortOldest:
		return db.Order("posts.created_at ASC")
	default:
		return db.Order("posts.created_at DESC")
	}
}

func (r *postRepository) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*models.Post, error) {
	var posts []*models.Post
	if err := scope(r.withDetails(readDB(r.db).WithContext(ctx))).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.attachContents(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// withDetails selects the computed counters in the same statement.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).
		Select("posts.*, " +
			postLikesExpr + " AS likes_count, " +
			postReactionsExpr + " AS reactions_count, " +
			postCommentsExpr + " AS comments_count").
		Preload("Creator")
}

func (r *postRepository) attachContents(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	byPost, err := contentsByTarget(ctx, readDB(r.db), models.TargetPost, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		p.Contents = byPost[p.ID]
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).
		Select("title", "text", "edited_at", "updated_at").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	cache.InvalidatePost(ctx, id)
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
