package services

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const profileOrderLimit = 5

// UserService serves account pages and admin user actions.
type UserService struct {
	userRepo  repositories.UserRepository
	orderRepo repositories.OrderRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, orderRepo repositories.OrderRepository) *UserService {
	return &UserService{userRepo: userRepo, orderRepo: orderRepo}
}

// Profile is the account page: the user and their latest orders.
type Profile struct {
	User         *models.User   `json:"user"`
	RecentOrders []models.Order `json:"recent_orders"`
}

// GetProfile loads a user with their five most recent orders.
func (s *UserService) GetProfile(userID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListByEmail(user.Email, profileOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for user %d: %w", userID, err)
	}
	return &Profile{User: user, RecentOrders: orders}, nil
}

type userAction struct {
	flag  repositories.UserFlag
	value bool
}

var userActions = map[string]userAction{
	"verify_emails":    {repositories.UserFlagEmailVerified, true},
	"unverify_emails":  {repositories.UserFlagEmailVerified, false},
	"activate_users":   {repositories.UserFlagActive, true},
	"deactivate_users": {repositories.UserFlagActive, false},
}

// ApplyAction runs a bulk admin action over ids. A failed bulk statement is retried per user.
func (s *UserService) ApplyAction(ids []uint, action string) (*BulkResult, error) {
	act, ok := userActions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if len(ids) == 0 {
		return nil, ErrNothingSelected
	}

	n, err := s.userRepo.SetFlag(ids, act.flag, act.value)
	if err == nil {
		return &BulkResult{Updated: int(n)}, nil
	}

	log.Warnf("Bulk %s failed, retrying per user: %v", action, err)
	result := &BulkResult{}
	for _, id := range ids {
		if _, err := s.userRepo.SetFlag([]uint{id}, act.flag, act.value); err != nil {
			result.Failed = append(result.Failed, id)
			result.Warnings = append(result.Warnings, fmt.Sprintf("user %d: %v", id, err))
			continue
		}
		result.Updated++
	}
	return result, nil
}

// CreateSuperuser creates or promotes a verified admin account.
func (s *UserService) CreateSuperuser(email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.GetByEmail(email)
	switch {
	case err == nil:
		user.Password = string(hashed)
		user.IsAdmin = true
		user.IsActive = true
		user.IsEmailVerified = true
		if err := s.userRepo.Update(user); err != nil {
			return nil, fmt.Errorf("failed to promote %s: %w", email, err)
		}
		return user, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	user = &models.User{
		Email:           email,
		Name:            name,
		Password:        string(hashed),
		TermsAccepted:   true,
		IsActive:        true,
		IsAdmin:         true,
		IsEmailVerified: true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create superuser: %w", err)
	}
	return user, nil
}
