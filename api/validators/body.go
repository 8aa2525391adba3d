package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
)

// maxBodyBytes caps request bodies; checkout carries the largest payload.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes the body without struct validation, for handlers whose
// service owns the validation messages.
func DecodeJSON(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.New(pkgerrors.CodeValidation, "Invalid data").WithDetails(map[string]any{"error": "request body is empty"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid data").WithDetails(map[string]any{"error": err.Error()})
	}
	return nil
}

// DecodeJSONBody decodes and validates dest with its validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	if err := DecodeJSON(r, dest); err != nil {
		return err
	}
	return validate.Struct(dest)
}
