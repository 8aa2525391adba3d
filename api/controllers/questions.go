package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/questions"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// QuestionsAsk accepts questions from shoppers and guests.
func QuestionsAsk(svc questions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "questions service unavailable"))
			return
		}
		var payload questions.AskInput
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		question, err := svc.Ask(ctx, questions.Asker{UserID: optionalUserID(ctx), Admin: isAdmin(ctx)}, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusCreated, map[string]any{"question": question})
	}
}

func QuestionsList(svc questions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "questions service unavailable"))
			return
		}
		productID, err := validators.ParseQueryUUID(r, "product_id", "Product ID required")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.List(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusOK, map[string]any{"questions": list})
	}
}

func AnswersCreate(svc questions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "questions service unavailable"))
			return
		}
		userID, err := requireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload questions.AnswerInput
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		answer, err := svc.Answer(ctx, questions.Asker{UserID: &userID, Admin: isAdmin(ctx)}, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusCreated, map[string]any{"answer": answer})
	}
}

type answerHelpfulPayload struct {
	AnswerID uuid.UUID `json:"answer_id"`
}

func AnswersHelpful(svc questions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "questions service unavailable"))
			return
		}
		userID, err := requireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload answerHelpfulPayload
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.ToggleAnswerHelpful(ctx, userID, payload.AnswerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusOK, map[string]any{
			"success":       true,
			"marked":        result.Marked,
			"helpful_count": result.HelpfulCount,
		})
	}
}
