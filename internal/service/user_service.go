package service

import (
	"context"
	"strings"

	"socialapi/internal/models"
	"socialapi/internal/repository"
	"socialapi/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxBioLen = 500

type UserService struct {
	userRepo repository.UserRepository
}

type CreateUserInput struct {
	FirstName   string
	LastName    string
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

type UpdateProfileInput struct {
	UserID      uint
	FirstName   *string
	LastName    *string
	Username    *string
	Email       *string
	PhoneNumber *string
	Bio         *string
	Avatar      *string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Create registers a new account with a bcrypt password hash. Duplicate
// usernames, emails and phone numbers are Conflict.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.ensureAvailable(ctx, 0, in.Username, in.Email, in.PhoneNumber); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
	}
	if in.PhoneNumber != "" {
		phone := in.PhoneNumber
		user.PhoneNumber = &phone
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ensureAvailable pre-checks the unique columns so callers get a specific
// message. The unique indexes remain the source of truth under races.
func (s *UserService) ensureAvailable(ctx context.Context, selfID uint, username, email, phone string) error {
	taken := func(u *models.User) bool { return u != nil && u.ID != selfID }

	if username != "" {
		u, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken(u) {
			return models.NewConflictError("Username already taken")
		}
	}
	if email != "" {
		u, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if taken(u) {
			return models.NewConflictError("Email already registered")
		}
	}
	if phone != "" {
		u, err := s.userRepo.GetByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if taken(u) {
			return models.NewConflictError("Phone number already registered")
		}
	}
	return nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	var username, email, phone string
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = username
	}
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = email
	}
	if in.PhoneNumber != nil {
		phone = strings.TrimSpace(*in.PhoneNumber)
		if phone == "" {
			user.PhoneNumber = nil
		} else {
			user.PhoneNumber = &phone
		}
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.ensureAvailable(ctx, user.ID, username, email, phone); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Remove deletes the caller's own account.
func (s *UserService) Remove(ctx context.Context, id, userID uint) error {
	if id != userID {
		return models.NewUnauthorizedError("You can only delete your own account")
	}
	return s.userRepo.Delete(ctx, id)
}

// SetDeviceToken stores the FCM registration token for push delivery.
// An empty token unregisters the device.
func (s *UserService) SetDeviceToken(ctx context.Context, userID uint, token string) error {
	const maxTokenLen = 4096
	token = strings.TrimSpace(token)
	if len(token) > maxTokenLen {
		return models.NewValidationError("Device token too long")
	}
	return s.userRepo.SetDeviceToken(ctx, userID, token)
}
