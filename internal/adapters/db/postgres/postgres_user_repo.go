package postgres

import (
	"context"
	"errors"
	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// CreateUser inserts the user and its empty profile in one transaction, so
// a failed insert never leaves an orphan profile behind.
func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return translateCreateError(err)
		}
		if _, err := getOrCreateProfile(tx, user.ID); err != nil {
			return customErrors.WrapInternal(err, "CreateUser profile")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.first(ctx, "GetUserByEmail", "email = ?", email)
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.first(ctx, "GetUserByID", "id = ?", id)
}

func (p *PostgresUserRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return p.first(ctx, "GetUserByUsername", "username = ?", username)
}

func (p *PostgresUserRepo) first(ctx context.Context, op, query string, arg any) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where(query, arg).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, op)
	}
	return u, nil
}

func (p *PostgresUserRepo) UpdateUser(ctx context.Context, user model.User) error {
	res := p.db.WithContext(ctx).Save(&user)
	if err := res.Error; err != nil {
		if _, dup := uniqueField(err); dup {
			return translateCreateError(err)
		}
		return customErrors.WrapInternal(err, "UpdateUser")
	}
	return nil
}

// DeleteUser removes the profile first and then the user. The schema also
// cascades, the explicit delete covers stores without foreign keys.
func (p *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.Profile{}).Error; err != nil {
			return customErrors.WrapInternal(err, "DeleteUser profile")
		}
		res := tx.Delete(&model.User{}, "id = ?", id)
		if err := res.Error; err != nil {
			return customErrors.WrapInternal(err, "DeleteUser")
		}
		if res.RowsAffected == 0 {
			return customErrors.ErrNotFound
		}
		return nil
	})
}
