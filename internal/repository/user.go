package repository

import (
	"context"
	"errors"

	"socialapi/internal/cache"
	"socialapi/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	GetDeviceToken(ctx context.Context, id uint) (string, error)
	SetDeviceToken(ctx context.Context, id uint, token string) error
	SetPassword(ctx context.Context, id uint, hash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
			return findErr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// getBy returns (nil, nil) when no row matches.
func (r *userRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getBy(ctx, "phone_number", phone)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return writeErr(err, "User already exists")
	}
	return nil
}

// Update writes the profile columns only. Credentials and the push token
// have their own setters because cached users do not carry them.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("first_name", "last_name", "username", "email", "phone_number", "bio", "avatar", "updated_at").
		Updates(user).Error
	if err != nil {
		return writeErr(err, "Username, email or phone number already in use")
	}
	cache.InvalidateUser(ctx, user.ID)
	// cached posts embed their creator's profile
	cache.InvalidatePosts(ctx, r.postIDsBy(ctx, user.ID)...)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	posts := r.postIDsBy(ctx, id)
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	cache.InvalidateUser(ctx, id)
	cache.InvalidatePosts(ctx, posts...)
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// postIDsBy lists the user's post IDs for cache eviction. It returns nothing
// when Redis is off or the lookup fails; entries then age out after PostTTL.
func (r *userRepository) postIDsBy(ctx context.Context, userID uint) []uint {
	if cache.GetClient() == nil {
		return nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("creator_id = ?", userID).Pluck("id", &ids).Error; err != nil {
		return nil
	}
	return ids
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// GetDeviceToken reads the push token straight from the primary. Cached
// profiles never carry it.
func (r *userRepository) GetDeviceToken(ctx context.Context, id uint) (string, error) {
	var tokens []string
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Pluck("device_token", &tokens).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	if len(tokens) == 0 {
		return "", models.NewNotFoundError("User", id)
	}
	return tokens[0], nil
}

func (r *userRepository) SetDeviceToken(ctx context.Context, id uint, token string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("device_token", token)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}
