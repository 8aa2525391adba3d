package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
)

const SubscribedMessage = "Successfully subscribed!"

type Service interface {
	Subscribe(ctx context.Context, email string) error
	Unsubscribe(ctx context.Context, email string) error
}

type service struct {
	db   *gorm.DB
	logg *logger.Logger
	now  func() time.Time
}

func NewService(conn *gorm.DB, logg *logger.Logger) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("newsletter db required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{db: conn, logg: logg, now: time.Now}, nil
}

// Subscribe inserts the address, or reactivates it when it was unsubscribed.
func (s *service) Subscribe(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	var existing models.NewsletterSubscriber
	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	switch {
	case err == nil:
		if existing.IsActive {
			return pkgerrors.New(pkgerrors.CodeDuplicate, "You are already subscribed!")
		}
		err = s.db.WithContext(ctx).
			Model(&models.NewsletterSubscriber{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{"is_active": true, "subscribed_at": now, "unsubscribed_at": nil}).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to subscribe")
		}
		s.logg.Info(s.logg.WithField(ctx, "subscriber_id", existing.ID.String()), "newsletter.resubscribed")
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to subscribe")
	}

	sub := models.NewsletterSubscriber{Email: email, IsActive: true, SubscribedAt: now}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		// A concurrent subscribe for the same address won the insert.
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "You are already subscribed!")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to subscribe")
	}
	s.logg.Info(s.logg.WithField(ctx, "subscriber_id", sub.ID.String()), "newsletter.subscribed")
	return nil
}

// Unsubscribe deactivates the address. Unknown addresses are a no-op.
func (s *service) Unsubscribe(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	err = s.db.WithContext(ctx).
		Model(&models.NewsletterSubscriber{}).
		Where("email = ? AND is_active = ?", email, true).
		Updates(map[string]any{"is_active": false, "unsubscribed_at": now}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to unsubscribe")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid email address")
	}
	return email, nil
}
