package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields maps each failing field to its message, for error details.
func (v ValidationErrors) Fields() map[string]any {
	out := make(map[string]any, len(v))
	for _, err := range v {
		out[err.Field] = err.Message
	}
	return out
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("booking_status", validateBookingStatus); err != nil {
		log.Fatal("Failed to register 'booking_status' validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	status := model.BookingStatus(fl.Field().String())
	return status == "" || status.Valid()
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) ValidateConfirm(req *model.ConfirmBookingRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) ValidateCancel(req *model.CancelBookingRequest) error {
	return v.validateStruct(req)
}

func (v *BookingValidator) ValidateStatus(status model.BookingStatus) error {
	if err := v.validate.Var(string(status), "booking_status"); err != nil {
		return ValidationErrors{
			ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("status must be one of: pending confirmed expired cancelled completed, got %q", status),
			},
		}
	}
	return nil
}

func (v *BookingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "iso4217":
			message = fmt.Sprintf("%s must be an ISO-4217 currency code (e.g., RWF)", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
