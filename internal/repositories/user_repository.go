package repositories

import "storefront/internal/models"

// UserFlag names a boolean account column that admins may toggle in bulk.
type UserFlag string

const (
	UserFlagEmailVerified UserFlag = "is_email_verified"
	UserFlagActive        UserFlag = "is_active"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
	// SetFlag updates flag for all ids in one statement.
	SetFlag(ids []uint, flag UserFlag, value bool) (int64, error)
}
