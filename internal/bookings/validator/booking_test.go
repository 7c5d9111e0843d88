package validator

import (
	"errors"
	"strings"
	"testing"

	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"
	"urutibiz/pkg/money"
)

func TestValidateCreate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	valid := func() *model.CreateBookingRequest {
		return &model.CreateBookingRequest{
			ProductID: "product-1",
			RenterID:  "renter-1",
			Amount:    money.MustParse("15000"),
			Currency:  "RWF",
		}
	}

	tests := []struct {
		name      string
		mutate    func(*model.CreateBookingRequest)
		wantField string
	}{
		{name: "valid", mutate: func(*model.CreateBookingRequest) {}},
		{name: "valid with owner", mutate: func(r *model.CreateBookingRequest) { r.OwnerID = "owner-9" }},
		{name: "missing product", mutate: func(r *model.CreateBookingRequest) { r.ProductID = "" }, wantField: "product_id"},
		{name: "missing renter", mutate: func(r *model.CreateBookingRequest) { r.RenterID = "" }, wantField: "renter_id"},
		{name: "unknown currency", mutate: func(r *model.CreateBookingRequest) { r.Currency = "XYZ" }, wantField: "currency"},
		{name: "lowercase currency", mutate: func(r *model.CreateBookingRequest) { r.Currency = "rwf" }, wantField: "currency"},
		{name: "missing currency", mutate: func(r *model.CreateBookingRequest) { r.Currency = "" }, wantField: "currency"},
		{name: "long product id", mutate: func(r *model.CreateBookingRequest) { r.ProductID = strings.Repeat("p", 65) }, wantField: "product_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := v.ValidateCreate(req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if _, ok := verrs.Fields()[tt.wantField]; !ok {
				t.Errorf("expected error on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidateCancel(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	if err := v.ValidateCancel(&model.CancelBookingRequest{Reason: "renter changed plans"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateCancel(&model.CancelBookingRequest{Reason: strings.Repeat("r", 501)}); err == nil {
		t.Errorf("expected error for overlong reason")
	}
}

func TestValidateConfirm(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	if err := v.ValidateConfirm(&model.ConfirmBookingRequest{}); err != nil {
		t.Errorf("payment reference is optional: %v", err)
	}
	if err := v.ValidateConfirm(&model.ConfirmBookingRequest{PaymentReference: strings.Repeat("x", 129)}); err == nil {
		t.Errorf("expected error for overlong payment reference")
	}
}

func TestValidateStatus(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	for _, s := range []model.BookingStatus{"", model.BookingStatusPending, model.BookingStatusCompleted} {
		if err := v.ValidateStatus(s); err != nil {
			t.Errorf("ValidateStatus(%q) unexpected error: %v", s, err)
		}
	}
	if err := v.ValidateStatus("archived"); err == nil {
		t.Errorf("expected error for unknown status")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "currency", Message: "bad"},
		{Field: "renter_id", Message: "missing"},
	}
	want := "validation failed: 2 error(s): [currency: bad; renter_id: missing]"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}
