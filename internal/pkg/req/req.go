/*
Package req provides helper functions for HTTP request parsing, binding and validation.

Bodies are decoded strictly (unknown fields and trailing data are rejected) and the
bound struct is then checked against its `validate` tags.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
)

// MaxJSONBodySize caps every JSON request body.
const MaxJSONBodySize int64 = 1 << 20 // 1 MB

var (
	validate = newValidator()

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "username": ASCII letters, digits and underscore only.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// BindJSON decodes the JSON request body into dst and validates it.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return Validate(dst)
}

// Validate runs struct validation on v and maps failures to ErrInvalidParams.
func Validate(v any) *errs.CustomError {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			logx.Debug("Request validation failed",
				"field", verrs[0].Namespace(),
				"tag", verrs[0].Tag(),
			)
		}
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// QueryInt reads a non-negative integer query parameter, falling back to def when absent.
// Values above max are clamped.
func QueryInt(r *http.Request, name string, def, max int) (int, *errs.CustomError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.NewError(errs.ErrInvalidParams)
	}

	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
