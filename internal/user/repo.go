package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MalikAqeelArshad/blog-crud/internal/apperr"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkEmailVerified renvoie false si l'email était déjà vérifié
func (r *Repository) MarkEmailVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND email_verified_at IS NULL", id).
		Update("email_verified_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
