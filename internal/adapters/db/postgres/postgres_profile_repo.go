package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/errors"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresProfileRepo struct {
	db *gorm.DB
}

func NewPostgresProfileRepo(db *gorm.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

func (p *PostgresProfileRepo) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	var profile model.Profile
	res := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.Profile{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "GetProfileByUserID")
	}
	return profile, nil
}

func (p *PostgresProfileRepo) GetOrCreateProfile(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	profile, err := getOrCreateProfile(p.db.WithContext(ctx), userID)
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "GetOrCreateProfile")
	}
	return profile, nil
}

// UpdateProfile creates the profile when missing, applies the supplied keys
// and always moves updated_at forward.
func (p *PostgresProfileRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, patch model.ProfilePatch) (model.Profile, error) {
	var out model.Profile
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := getOrCreateProfile(tx, userID)
		if err != nil {
			return err
		}

		patch.Apply(&profile)
		profile.UpdatedAt = time.Now()

		res := tx.Model(&model.Profile{}).Where("id = ?", profile.ID).Updates(map[string]any{
			"phone":         profile.Phone,
			"address":       profile.Address,
			"date_of_birth": profile.DateOfBirth,
			"updated_at":    profile.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		out = profile
		return nil
	})
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "UpdateProfile")
	}
	return out, nil
}

// getOrCreateProfile is safe against a concurrent first update: the insert
// is a no-op on conflict and the row is read back afterwards.
func getOrCreateProfile(tx *gorm.DB, userID uuid.UUID) (model.Profile, error) {
	var profile model.Profile
	res := tx.Where("user_id = ?", userID).Limit(1).Find(&profile)
	if res.Error != nil {
		return model.Profile{}, res.Error
	}
	if res.RowsAffected > 0 {
		return profile, nil
	}

	now := time.Now()
	fresh := model.Profile{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return model.Profile{}, err
	}

	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}
