// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"socialapi/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plaintext password of every seeded user.
const DefaultPassword = "Seed-Password-1"

// Options tune a Factory.
type Options struct {
	// RandSeed makes generated content reproducible. Zero uses the clock.
	RandSeed int64
	// SkipBcrypt stores a cheap hash so large presets finish quickly.
	// Seeded users cannot log in when it is set.
	SkipBcrypt bool
	// MaxDays spreads created_at timestamps over the past MaxDays days.
	MaxDays int
}

// Factory builds domain rows with fake content and persists them.
type Factory struct {
	db       *gorm.DB
	opts     Options
	faker    *gofakeit.Faker
	password string
	seq      int
}

// NewFactory returns a Factory writing to db.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}

	password := "seed-unhashed"
	if !opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		password = string(hashed)
	}

	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed), password: password}, nil
}

// pastTime returns a random instant within the configured window.
func (f *Factory) pastTime() time.Time {
	minutes := f.faker.Number(0, f.opts.MaxDays*24*60)
	return time.Now().Add(-time.Duration(minutes) * time.Minute)
}

func (f *Factory) username(first string) string {
	f.seq++
	base := strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, first))
	if base == "" {
		base = "user"
	}
	if len(base) > 20 {
		base = base[:20]
	}
	return fmt.Sprintf("%s_%d", base, f.seq)
}

// CreateUser persists a user with a unique username and email.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := f.username(first)
	user := &models.User{
		FirstName: first,
		LastName:  last,
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.password,
		Bio:       f.faker.Sentence(10),
		Avatar:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// CreatePost persists a post authored by creator.
func (f *Factory) CreatePost(creator *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	created := f.pastTime()
	post := &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(5), "."),
		Text:      f.faker.Paragraph(1, 3, 8, "\n"),
		CreatorID: creator.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Omit("Creator").Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreateComment persists a comment on post. A non-nil parent makes it a reply.
func (f *Factory) CreateComment(author *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		Text:   f.faker.Sentence(8),
		PostID: post.ID,
		UserID: author.ID,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := f.db.Omit("User", "Replies").Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// CreateLike persists a like from user on target.
func (f *Factory) CreateLike(user *models.User, target models.Target) (*models.Like, error) {
	like := &models.Like{UserID: user.ID, TargetKind: target.Kind, TargetID: target.ID}
	if err := f.db.Create(like).Error; err != nil {
		return nil, fmt.Errorf("create like on %s: %w", target, err)
	}
	return like, nil
}

var reactionTypes = []models.ReactionType{
	models.ReactionLike, models.ReactionLove, models.ReactionHaha,
	models.ReactionWow, models.ReactionSad, models.ReactionAngry,
}

// CreateReaction persists a reaction of a random type from user on target.
func (f *Factory) CreateReaction(user *models.User, target models.Target) (*models.Reaction, error) {
	reaction := &models.Reaction{
		UserID:     user.ID,
		TargetKind: target.Kind,
		TargetID:   target.ID,
		Type:       reactionTypes[f.faker.Number(0, len(reactionTypes)-1)],
	}
	if err := f.db.Create(reaction).Error; err != nil {
		return nil, fmt.Errorf("create reaction on %s: %w", target, err)
	}
	return reaction, nil
}

// Follow makes follower follow following.
func (f *Factory) Follow(follower, following *models.User) error {
	edge := &models.Follow{FollowerID: follower.ID, FollowingID: following.ID}
	if err := f.db.Omit("Follower", "Following").Create(edge).Error; err != nil {
		return fmt.Errorf("follow %d -> %d: %w", follower.ID, following.ID, err)
	}
	return nil
}

// CreateConversation persists a conversation started by initiator with the
// given members. The initiator is always a participant.
func (f *Factory) CreateConversation(initiator *models.User, isGroup bool, members ...*models.User) (*models.Conversation, error) {
	conv := &models.Conversation{InitiatorID: initiator.ID, IsGroup: isGroup}
	if isGroup {
		conv.Name = f.faker.HipsterWord() + " " + f.faker.Noun()
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants", "Messages").Create(conv).Error; err != nil {
			return err
		}
		seen := map[uint]bool{}
		for _, u := range append([]*models.User{initiator}, members...) {
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			if err := tx.Create(&models.ConversationParticipant{ConversationID: conv.ID, UserID: u.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// CreateMessage persists a message from sender in conv.
func (f *Factory) CreateMessage(conv *models.Conversation, sender *models.User) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        f.faker.Sentence(10),
	}
	if err := f.db.Omit("Sender").Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// pick returns n distinct users from pool, never including exclude.
func (f *Factory) pick(pool []*models.User, n int, exclude *models.User) []*models.User {
	candidates := make([]*models.User, 0, len(pool))
	for _, u := range pool {
		if exclude == nil || u.ID != exclude.ID {
			candidates = append(candidates, u)
		}
	}
	f.faker.ShuffleAnySlice(candidates)
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}
