package seed

import (
	"context"
	"fmt"
	"log/slog"

	"socialapi/internal/database"
	"socialapi/internal/middleware"
	"socialapi/internal/models"

	"gorm.io/gorm"
)

// Summary counts the rows a run created.
type Summary struct {
	Users         int
	Follows       int
	Posts         int
	Comments      int
	Likes         int
	Reactions     int
	Conversations int
	Messages      int
}

// Seeder fills a database from a Preset.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// Factory exposes the underlying row factory.
func (s *Seeder) Factory() *Factory { return s.factory }

// ClearAll removes every row from the domain tables.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE notifications, contents, messages, conversation_participants,
			conversations, reactions, likes, comments, posts, follows, refresh_tokens, users
			RESTART IDENTITY CASCADE`).Error
	}

	persistent := database.PersistentModels()
	for i := len(persistent) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(persistent[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", persistent[i], err)
		}
	}
	return nil
}

// Run creates the dataset described by p.
func (s *Seeder) Run(ctx context.Context, p Preset) (Summary, error) {
	var sum Summary
	if err := p.validate(); err != nil {
		return sum, err
	}
	f := s.factory
	f.db = s.db.WithContext(ctx)

	users := make([]*models.User, 0, p.Users)
	for i := 0; i < p.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return sum, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	for _, u := range users {
		for _, target := range f.pick(users, p.FollowsPerUser, u) {
			if err := f.Follow(u, target); err != nil {
				return sum, err
			}
			sum.Follows++
		}
	}

	for i := 0; i < p.Posts; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		post, err := f.CreatePost(author)
		if err != nil {
			return sum, err
		}
		sum.Posts++

		if err := s.engage(p, post, users, &sum); err != nil {
			return sum, err
		}
	}

	if len(users) >= 2 {
		for i := 0; i < p.DirectConversations; i++ {
			pair := f.pick(users, 2, nil)
			if err := s.converse(p, false, pair, &sum); err != nil {
				return sum, err
			}
		}
		for i := 0; i < p.GroupConversations; i++ {
			if err := s.converse(p, true, f.pick(users, p.GroupSize, nil), &sum); err != nil {
				return sum, err
			}
		}
	}

	middleware.Logger.Info("seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("follows", sum.Follows),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
		slog.Int("reactions", sum.Reactions),
		slog.Int("conversations", sum.Conversations),
		slog.Int("messages", sum.Messages))
	return sum, nil
}

// engage adds comments, likes and reactions to post.
func (s *Seeder) engage(p Preset, post *models.Post, users []*models.User, sum *Summary) error {
	f := s.factory

	var comments []*models.Comment
	for i := f.faker.Number(0, p.CommentsPerPost); i > 0; i-- {
		author := users[f.faker.Number(0, len(users)-1)]
		var parent *models.Comment
		if len(comments) > 0 && f.faker.Float64Range(0, 1) < p.ReplyRatio {
			parent = comments[f.faker.Number(0, len(comments)-1)]
		}
		c, err := f.CreateComment(author, post, parent)
		if err != nil {
			return err
		}
		comments = append(comments, c)
		sum.Comments++
	}

	target := models.PostTarget(post.ID)
	for _, u := range f.pick(users, f.faker.Number(0, p.LikesPerPost), nil) {
		if _, err := f.CreateLike(u, target); err != nil {
			return err
		}
		sum.Likes++
	}
	for _, u := range f.pick(users, f.faker.Number(0, p.ReactionsPerPost), nil) {
		if _, err := f.CreateReaction(u, target); err != nil {
			return err
		}
		sum.Reactions++
	}
	return nil
}

func (s *Seeder) converse(p Preset, group bool, members []*models.User, sum *Summary) error {
	f := s.factory
	conv, err := f.CreateConversation(members[0], group, members[1:]...)
	if err != nil {
		return err
	}
	sum.Conversations++

	for i := 0; i < p.MessagesPerConversation; i++ {
		sender := members[f.faker.Number(0, len(members)-1)]
		if _, err := f.CreateMessage(conv, sender); err != nil {
			return err
		}
		sum.Messages++
	}
	return nil
}

// ApplyPreset runs the named preset from ps.
func (s *Seeder) ApplyPreset(ctx context.Context, ps Presets, name string) (Summary, error) {
	p, err := ps.Lookup(name)
	if err != nil {
		return Summary{}, err
	}
	middleware.Logger.Info("applying seed preset", slog.String("preset", name))
	return s.Run(ctx, p)
}
