package core

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"climaroute/internal/types"
)

// Validator wraps go-playground/validator and translates validation failures
// into the AppError taxonomy so handlers return consistent 400 responses.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator. The built-in "latitude" and
// "longitude" tags cover the coordinate ranges this service cares about.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateStruct validates a request DTO and returns a *types.AppError
// describing the first offending fields, or nil when the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: the DTO itself is broken, not the input.
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"request validation could not be performed",
			err,
		)
	}

	details := make(map[string]any, len(verrs))
	code := types.ErrCodeValidationMissingField
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
		switch fe.Tag() {
		case "latitude":
			code = types.ErrCodeValidationInvalidLat
		case "longitude":
			code = types.ErrCodeValidationInvalidLon
		}
	}

	return types.NewAppErrorWithDetails(
		code,
		"request validation failed",
		err,
		details,
	)
}
