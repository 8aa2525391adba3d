package questions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// AskInput is the body of POST /api/questions. Guests identify themselves by
// name and email.
type AskInput struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	Question   string    `json:"question" validate:"required,max=2000"`
	GuestName  *string   `json:"guest_name,omitempty" validate:"omitempty,max=120"`
	GuestEmail *string   `json:"guest_email,omitempty" validate:"omitempty,email"`
}

type AnswerInput struct {
	QuestionID uuid.UUID `json:"question_id" validate:"required"`
	Answer     string    `json:"answer" validate:"required,max=4000"`
}

type QuestionDTO struct {
	ID        uuid.UUID   `json:"id"`
	ProductID uuid.UUID   `json:"product_id"`
	UserID    *uuid.UUID  `json:"user_id"`
	GuestName *string     `json:"guest_name"`
	Question  string      `json:"question"`
	Answers   []AnswerDTO `json:"answers"`
	CreatedAt time.Time   `json:"created_at"`
}

type AnswerDTO struct {
	ID           uuid.UUID `json:"id"`
	QuestionID   uuid.UUID `json:"question_id"`
	UserID       uuid.UUID `json:"user_id"`
	Answer       string    `json:"answer"`
	IsOfficial   bool      `json:"is_official"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type HelpfulResult struct {
	Marked       bool `json:"marked"`
	HelpfulCount int  `json:"helpful_count"`
}

// newQuestionDTO omits the guest email; it is never shown publicly.
func newQuestionDTO(q models.ProductQuestion) QuestionDTO {
	answers := make([]AnswerDTO, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, newAnswerDTO(a))
	}
	return QuestionDTO{
		ID:        q.ID,
		ProductID: q.ProductID,
		UserID:    q.UserID,
		GuestName: q.GuestName,
		Question:  q.Question,
		Answers:   answers,
		CreatedAt: q.CreatedAt,
	}
}

func newAnswerDTO(a models.ProductAnswer) AnswerDTO {
	return AnswerDTO{
		ID:           a.ID,
		QuestionID:   a.QuestionID,
		UserID:       a.UserID,
		Answer:       a.Answer,
		IsOfficial:   a.IsOfficial,
		HelpfulCount: a.HelpfulCount,
		CreatedAt:    a.CreatedAt,
	}
}
