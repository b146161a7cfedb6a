package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/internal/session"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/ikkim/sneakers-backend/pkg/util"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Phone           string
	Address         string
}

func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return NewValidationError("username", "is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return NewValidationError("email", "is required")
	}
	if !strings.Contains(in.Email, "@") {
		return NewValidationError("email", "is not a valid email address")
	}
	if err := util.CheckPasswordLength(in.Password); err != nil {
		return NewValidationError("password", err.Error())
	}
	if in.Password != in.PasswordConfirm {
		return NewValidationError("password_confirm", "passwords do not match")
	}
	return nil
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
}

type AuthResult struct {
	User   *model.User
	Tokens *util.TokenPair
	Merge  *MergeResult
}

type AuthService interface {
	// Register creates the account and, when sessionID names a live
	// anonymous session, moves that session's cart and favorites into it
	// within the same transaction.
	Register(ctx context.Context, input RegisterInput, sessionID *string) (*AuthResult, error)
	Login(email, password string) (*AuthResult, error)
	GetProfile(userID uint) (*model.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error)
}

type authService struct {
	db            *gorm.DB
	userRepo      repository.UserRepository
	mergeService  AccountMergeService
	sessions      session.Store
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	mergeService AccountMergeService,
	sessions session.Store,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		db:            db,
		userRepo:      userRepo,
		mergeService:  mergeService,
		sessions:      sessions,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput, sessionID *string) (*AuthResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)

	logger.Info("Attempting user registration", map[string]interface{}{
		"email":        input.Email,
		"username":     input.Username,
		"with_session": sessionID != nil,
	})

	if err := input.Validate(); err != nil {
		logger.Warn("Registration rejected", map[string]interface{}{
			"email": input.Email,
			"error": err.Error(),
		})
		return nil, err
	}

	if err := s.ensureAvailable(input.Email, input.Username); err != nil {
		return nil, err
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, err
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         model.RoleUser,
	}
	profile := &model.UserProfile{
		Phone:   strings.TrimSpace(input.Phone),
		Address: strings.TrimSpace(input.Address),
	}

	var merge *MergeResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		if err := users.Create(user); err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := users.CreateProfile(profile); err != nil {
			return err
		}
		if sessionID == nil {
			return nil
		}
		result, err := s.mergeService.MergeSessionIntoUser(tx, *sessionID, user.ID)
		if err != nil {
			return err
		}
		merge = result
		return nil
	})
	if err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, duplicateUserError(err)
		}
		logger.Error("Registration transaction failed", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, err
	}
	user.Profile = profile

	if sessionID != nil {
		if err := s.sessions.Delete(ctx, *sessionID); err != nil {
			logger.Warn("Failed to retire merged session", map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
		"merged":  merge != nil && !merge.Empty(),
	})
	return &AuthResult{User: user, Tokens: tokens, Merge: merge}, nil
}

func (s *authService) ensureAvailable(email, username string) error {
	_, err := s.userRepo.FindByEmail(email)
	switch {
	case err == nil:
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return ErrEmailAlreadyExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	_, err = s.userRepo.FindByUsername(username)
	switch {
	case err == nil:
		logger.Warn("Registration failed: username already exists", map[string]interface{}{
			"username": username,
		})
		return ErrUsernameAlreadyExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return nil
}

// duplicateUserError maps a unique violation that slipped past
// ensureAvailable (a concurrent registration) onto the matching sentinel.
func duplicateUserError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "username") {
		return ErrUsernameAlreadyExists
	}
	return ErrEmailAlreadyExists
}

func (s *authService) Login(email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

func (s *authService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": userID,
			})
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	logger.Info("Updating user profile", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil || update.LastName != nil {
		if update.FirstName != nil {
			user.FirstName = strings.TrimSpace(*update.FirstName)
		}
		if update.LastName != nil {
			user.LastName = strings.TrimSpace(*update.LastName)
		}
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
	}

	if update.Phone != nil || update.Address != nil {
		profile := user.Profile
		if profile == nil {
			profile = &model.UserProfile{UserID: user.ID}
		}
		if update.Phone != nil {
			profile.Phone = strings.TrimSpace(*update.Phone)
		}
		if update.Address != nil {
			profile.Address = strings.TrimSpace(*update.Address)
		}
		if err := s.userRepo.SaveProfile(profile); err != nil {
			return nil, err
		}
		user.Profile = profile
	}

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}
