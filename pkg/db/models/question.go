package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductQuestion is a shopper question; guests supply a name and email instead of a user.
type ProductQuestion struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	UserID     *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	GuestName  *string         `gorm:"column:guest_name"`
	GuestEmail *string         `gorm:"column:guest_email"`
	Question   string          `gorm:"column:question;not null"`
	Answers    []ProductAnswer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (q *ProductQuestion) BeforeCreate(*gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// ProductAnswer answers a question. IsOfficial marks staff answers.
type ProductAnswer struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	QuestionID   uuid.UUID `gorm:"column:question_id;type:uuid;not null;index"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Answer       string    `gorm:"column:answer;not null"`
	IsOfficial   bool      `gorm:"column:is_official;not null;default:false"`
	HelpfulCount int       `gorm:"column:helpful_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *ProductAnswer) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// AnswerHelpful records one user's helpful mark on an answer.
type AnswerHelpful struct {
	AnswerID  uuid.UUID `gorm:"column:answer_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AnswerHelpful) TableName() string { return "answer_helpful" }
