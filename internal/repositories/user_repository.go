package repositories

import (
	"context"

	"tienda/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	List(ctx context.Context, search string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, phone string) error
	UpdateRole(ctx context.Context, id, role string) error
	// ClearFirstPurchase flips the first-purchase flag off. It is a no-op when already off.
	ClearFirstPurchase(ctx context.Context, id string) error
}
