package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	settingserrors "urutibiz/internal/settings/errors"
	"urutibiz/internal/settings/repository"
	"urutibiz/pkg/config"
	apperrors "urutibiz/pkg/errors"
	"urutibiz/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	PolicySourceStored  = "stored"
	PolicySourceDefault = "default"
)

const expirationHoursDescription = "Hours a pending booking waits for payment before it expires"

// SettingsService owns the booking expiration policy. Changing the policy
// never touches bookings that already carry an expires_at.
type SettingsService interface {
	ExpirationWindow(ctx context.Context) (time.Duration, error)
	ExpirationPolicy(ctx context.Context) (*model.ExpirationPolicy, error)
	SetExpirationHours(ctx context.Context, hours int) (*model.ExpirationPolicy, error)
}

type settingsService struct {
	repo     repository.SettingRepository
	validate *validator.Validate
	cfg      *config.Config
	now      func() time.Time
}

func NewSettingsService(repo repository.SettingRepository, cfg *config.Config) SettingsService {
	return &settingsService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *settingsService) ExpirationWindow(ctx context.Context) (time.Duration, error) {
	policy, err := s.ExpirationPolicy(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(policy.Hours) * time.Hour, nil
}

// ExpirationPolicy returns the stored hours, or the configured default when the
// setting is missing or unreadable.
func (s *settingsService) ExpirationPolicy(ctx context.Context) (*model.ExpirationPolicy, error) {
	setting, err := s.repo.Get(ctx, model.SettingBookingExpirationHours)
	if err != nil {
		if errors.Is(err, settingserrors.ErrNotFound) {
			return s.defaultPolicy(), nil
		}
		s.cfg.Log.Error("Failed to read expiration policy", "key", model.SettingBookingExpirationHours, "error", err)
		if errors.Is(err, settingserrors.ErrStoreUnavailable) {
			return nil, apperrors.StoreUnavailable("Settings store unavailable", err)
		}
		return nil, apperrors.Internal("Failed to read expiration policy", err)
	}

	hours, err := strconv.Atoi(setting.Value)
	if err != nil || hours < config.MinExpirationHours || hours > config.MaxExpirationHours {
		s.cfg.Log.Warn("Ignoring invalid stored expiration policy",
			"key", setting.Key,
			"value", setting.Value,
			"fallback_hours", s.cfg.DefaultExpirationHours,
		)
		return s.defaultPolicy(), nil
	}

	return &model.ExpirationPolicy{
		Hours:     hours,
		Source:    PolicySourceStored,
		UpdatedAt: &setting.UpdatedAt,
	}, nil
}

func (s *settingsService) SetExpirationHours(ctx context.Context, hours int) (*model.ExpirationPolicy, error) {
	req := model.SetExpirationRequest{Hours: hours}
	if err := s.validate.Struct(&req); err != nil {
		s.cfg.Log.Warn("Expiration policy validation failed", "hours", hours, "error", err)
		return nil, apperrors.Validation(
			fmt.Sprintf("booking_expiration_hours must be between %d and %d", config.MinExpirationHours, config.MaxExpirationHours),
			map[string]any{"booking_expiration_hours": hours},
		)
	}

	setting := &model.SystemSetting{
		Key:         model.SettingBookingExpirationHours,
		Value:       strconv.Itoa(hours),
		Category:    model.SettingCategoryBooking,
		Description: expirationHoursDescription,
		UpdatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		s.cfg.Log.Error("Failed to store expiration policy", "hours", hours, "error", err)
		if errors.Is(err, settingserrors.ErrStoreUnavailable) {
			return nil, apperrors.StoreUnavailable("Settings store unavailable", err)
		}
		return nil, apperrors.Internal("Failed to store expiration policy", err)
	}

	s.cfg.Log.Info("Expiration policy updated", "hours", hours)
	return &model.ExpirationPolicy{
		Hours:     hours,
		Source:    PolicySourceStored,
		UpdatedAt: &setting.UpdatedAt,
	}, nil
}

func (s *settingsService) defaultPolicy() *model.ExpirationPolicy {
	return &model.ExpirationPolicy{
		Hours:  s.cfg.DefaultExpirationHours,
		Source: PolicySourceDefault,
	}
}
