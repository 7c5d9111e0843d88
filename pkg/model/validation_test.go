package model

import (
	"encoding/json"
	"testing"
	"time"

	"urutibiz/pkg/money"
)

func TestBookingStatus_Valid(t *testing.T) {
	valid := []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusExpired,
		BookingStatusCancelled,
		BookingStatusCompleted,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	for _, s := range []BookingStatus{"", "active", "PENDING"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestBooking_IsPastDeadline(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expires := created.Add(2 * time.Hour)
	b := &Booking{Status: BookingStatusPending, CreatedAt: created, ExpiresAt: &expires}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"at creation", created, false},
		{"one nanosecond before deadline", expires.Add(-time.Nanosecond), false},
		{"exactly at deadline", expires, true},
		{"after deadline", expires.Add(time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.IsPastDeadline(tt.now); got != tt.want {
				t.Errorf("IsPastDeadline() = %v, want %v", got, tt.want)
			}
		})
	}

	confirmed := &Booking{Status: BookingStatusConfirmed}
	if confirmed.IsPastDeadline(expires.Add(time.Hour)) {
		t.Errorf("booking without deadline can never be past it")
	}
}

func TestBooking_JSONShape(t *testing.T) {
	b := Booking{
		ID:        "b-1",
		ProductID: "p-1",
		RenterID:  "r-1",
		Status:    BookingStatusConfirmed,
		Amount:    money.MustParse("869728860"),
		Currency:  "RWF",
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["amount"] != "869728860.00" {
		t.Errorf("amount = %v, want string 869728860.00", out["amount"])
	}
	if v, ok := out["expires_at"]; !ok || v != nil {
		t.Errorf("expires_at should be present and null outside pending, got %v", v)
	}
	if _, ok := out["owner_id"]; ok {
		t.Errorf("empty owner_id should be omitted")
	}
}
