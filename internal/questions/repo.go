package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateQuestion(ctx context.Context, q *models.ProductQuestion) error {
	return r.db.WithContext(ctx).Omit("Answers").Create(q).Error
}

// ListByProduct returns questions newest first, each with its answers oldest first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductQuestion, error) {
	var rows []models.ProductQuestion
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_official DESC").Order("created_at ASC")
		}).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) QuestionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductQuestion{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateAnswer(ctx context.Context, a *models.ProductAnswer) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("is_admin").Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return user.IsAdmin, err
}

func (r *Repository) AnswerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductAnswer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ToggleAnswerHelpful flips the user's mark and rewrites helpful_count.
func (r *Repository) ToggleAnswerHelpful(ctx context.Context, answerID, userID uuid.UUID) (bool, int, error) {
	db := r.db.WithContext(ctx)

	var existing models.AnswerHelpful
	err := db.Where("answer_id = ? AND user_id = ?", answerID, userID).Take(&existing).Error
	marked := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&models.AnswerHelpful{AnswerID: answerID, UserID: userID}).Error; err != nil {
			return false, 0, err
		}
		marked = true
	case err != nil:
		return false, 0, err
	default:
		if err := db.Where("answer_id = ? AND user_id = ?", answerID, userID).Delete(&models.AnswerHelpful{}).Error; err != nil {
			return false, 0, err
		}
	}

	var count int64
	if err := db.Model(&models.AnswerHelpful{}).Where("answer_id = ?", answerID).Count(&count).Error; err != nil {
		return false, 0, err
	}
	if err := db.Model(&models.ProductAnswer{}).Where("id = ?", answerID).Update("helpful_count", count).Error; err != nil {
		return false, 0, err
	}
	return marked, int(count), nil
}
