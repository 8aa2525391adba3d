package questions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Asker identifies who is asking or answering. A nil UserID is a guest.
type Asker struct {
	UserID *uuid.UUID
	Admin  bool
}

type Service interface {
	Ask(ctx context.Context, asker Asker, input AskInput) (*QuestionDTO, error)
	List(ctx context.Context, productID uuid.UUID) ([]QuestionDTO, error)
	Answer(ctx context.Context, asker Asker, input AnswerInput) (*AnswerDTO, error)
	ToggleAnswerHelpful(ctx context.Context, userID, answerID uuid.UUID) (*HelpfulResult, error)
}

type service struct {
	tx   txRunner
	repo *Repository
	logg *logger.Logger
}

func NewService(tx txRunner, repo *Repository, logg *logger.Logger) (Service, error) {
	if tx == nil || repo == nil {
		return nil, fmt.Errorf("questions service dependencies required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

func (s *service) Ask(ctx context.Context, asker Asker, input AskInput) (*QuestionDTO, error) {
	input.Question = strings.TrimSpace(input.Question)
	input.GuestName = trimmed(input.GuestName)
	input.GuestEmail = trimmed(input.GuestEmail)
	if err := validate.Struct(input); err != nil {
		return nil, invalidData(err)
	}

	question := models.ProductQuestion{
		ProductID: input.ProductID,
		Question:  input.Question,
	}
	if asker.UserID != nil {
		id := *asker.UserID
		question.UserID = &id
	} else {
		if input.GuestName == nil || input.GuestEmail == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Guest name and email required")
		}
		question.GuestName = input.GuestName
		question.GuestEmail = input.GuestEmail
	}

	if err := s.repo.CreateQuestion(ctx, &question); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to submit question")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"question_id": question.ID.String(),
		"product_id":  question.ProductID.String(),
		"guest":       question.UserID == nil,
	}), "questions.asked")

	dto := newQuestionDTO(question)
	return &dto, nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID) ([]QuestionDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID required")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list questions")
	}
	out := make([]QuestionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newQuestionDTO(row))
	}
	return out, nil
}

// Answer records an answer. It is official when the caller holds the admin
// role or the stored profile is flagged admin.
func (s *service) Answer(ctx context.Context, asker Asker, input AnswerInput) (*AnswerDTO, error) {
	if asker.UserID == nil || *asker.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	input.Answer = strings.TrimSpace(input.Answer)
	if err := validate.Struct(input); err != nil {
		return nil, invalidData(err)
	}

	answer := models.ProductAnswer{
		QuestionID: input.QuestionID,
		UserID:     *asker.UserID,
		Answer:     input.Answer,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.QuestionExists(ctx, input.QuestionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load question")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Question not found")
		}

		official := asker.Admin
		if !official {
			if official, err = repo.IsAdmin(ctx, *asker.UserID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
			}
		}
		answer.IsOfficial = official

		if err := repo.CreateAnswer(ctx, &answer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to submit answer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := newAnswerDTO(answer)
	return &dto, nil
}

func (s *service) ToggleAnswerHelpful(ctx context.Context, userID, answerID uuid.UUID) (*HelpfulResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	if answerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid data")
	}

	var result HelpfulResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.AnswerExists(ctx, answerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load answer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Answer not found")
		}
		marked, count, err := repo.ToggleAnswerHelpful(ctx, answerID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle helpful mark")
		}
		result = HelpfulResult{Marked: marked, HelpfulCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func invalidData(err error) error {
	out := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid data")
	if typed := pkgerrors.As(err); typed != nil && typed.Details() != nil {
		out = out.WithDetails(typed.Details())
	}
	return out
}
