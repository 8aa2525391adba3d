package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NewsletterSubscriber struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email          string     `gorm:"column:email;not null;uniqueIndex"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	SubscribedAt   time.Time  `gorm:"column:subscribed_at;not null"`
	UnsubscribedAt *time.Time `gorm:"column:unsubscribed_at"`
}

func (n *NewsletterSubscriber) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
