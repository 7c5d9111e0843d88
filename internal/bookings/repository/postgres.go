package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	bookingserrors "urutibiz/internal/bookings/errors"
	"urutibiz/pkg/config"
	"urutibiz/pkg/db/postgres"
	"urutibiz/pkg/model"
	"urutibiz/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, product_id, renter_id, COALESCE(owner_id, ''), status, amount::text, currency,
	COALESCE(payment_reference, ''), COALESCE(cancellation_reason, ''),
	created_at, updated_at, expires_at, confirmed_at, cancelled_at, completed_at, expired_at`

type postgresBookingRepository struct {
	db           postgres.Querier
	pinger       postgres.Pinger
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewPostgresBookingRepository(cfg *config.Config) BookingRepository {
	return &postgresBookingRepository{
		db:           cfg.Client.Postgres,
		pinger:       cfg.Client.Postgres,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *postgresBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := postgres.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	booking.ID = uuid.NewString()
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, product_id, renter_id, owner_id, status, amount, currency, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, CAST($6::text AS NUMERIC(14,2)), $7, $8, $9, $10)`,
		booking.ID,
		booking.ProductID,
		booking.RenterID,
		booking.OwnerID,
		string(booking.Status),
		booking.Amount.String(),
		booking.Currency,
		booking.CreatedAt,
		booking.UpdatedAt,
		booking.ExpiresAt,
	)
	if err != nil {
		booking.ID = ""
		return wrapPostgresErr("create booking", err)
	}
	return nil
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, wrapPostgresErr("find booking", err)
	}
	return booking, nil
}

func (r *postgresBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	where, args := whereClause(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM bookings %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	return r.query(ctx, "find bookings", query, args...)
}

func (r *postgresBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	where, args := whereClause(filter)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings `+where, args...).Scan(&count); err != nil {
		return 0, wrapPostgresErr("count bookings", err)
	}
	return count, nil
}

func (r *postgresBookingRepository) FindExpirable(ctx context.Context, now time.Time, limit int, exclude []string) ([]*model.Booking, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	if exclude == nil {
		exclude = []string{}
	}
	return r.query(ctx, "find expirable bookings", `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = $1 AND expires_at <= $2 AND NOT (id::text = ANY($4::text[]))
		ORDER BY expires_at ASC
		LIMIT $3`,
		string(model.BookingStatusPending), now, limit, exclude,
	)
}

// Transition is one UPDATE guarded by status and deadline. Postgres row locks
// make concurrent transitions on the same id serialize, and the loser sees no row.
func (r *postgresBookingRepository) Transition(ctx context.Context, t Transition) (*model.Booking, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := uuid.Parse(t.ID); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, t.ID)
	}

	args := []any{t.ID, string(t.To), t.At, sourceStatuses(t.To)}
	set := []string{
		"status = $2",
		"updated_at = $3",
		"expires_at = NULL",
		stampField(t.To) + " = $3",
	}
	if t.PaymentReference != "" {
		args = append(args, t.PaymentReference)
		set = append(set, fmt.Sprintf("payment_reference = $%d", len(args)))
	}
	if t.CancellationReason != "" {
		args = append(args, t.CancellationReason)
		set = append(set, fmt.Sprintf("cancellation_reason = $%d", len(args)))
	}

	where := "id = $1 AND status = ANY($4::text[])"
	switch t.Guard {
	case GuardOpen:
		where += " AND expires_at > $3"
	case GuardElapsed:
		where += " AND expires_at <= $3"
	}

	query := fmt.Sprintf(`UPDATE bookings SET %s WHERE %s RETURNING %s`,
		strings.Join(set, ", "), where, bookingColumns)

	booking, err := scanBooking(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return booking, nil
	}
	if !postgres.IsNoRows(err) {
		return nil, wrapPostgresErr("transition booking", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
		return nil, wrapPostgresErr("check booking", err)
	}
	if !exists {
		return nil, bookingserrors.ErrNotFound
	}
	return nil, bookingserrors.ErrStateConflict
}

func (r *postgresBookingRepository) Ping(ctx context.Context) error {
	ctx, cancel := postgres.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	if err := r.pinger.Ping(ctx); err != nil {
		return wrapPostgresErr("ping booking store", err)
	}
	return nil
}

func (r *postgresBookingRepository) query(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapPostgresErr(op, err)
	}
	defer rows.Close()

	bookings := []*model.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, wrapPostgresErr(op, err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPostgresErr(op, err)
	}
	return bookings, nil
}

func whereClause(filter model.BookingFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RenterID != "" {
		args = append(args, filter.RenterID)
		conds = append(conds, fmt.Sprintf("renter_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
		amount string
	)
	err := row.Scan(
		&b.ID,
		&b.ProductID,
		&b.RenterID,
		&b.OwnerID,
		&status,
		&amount,
		&b.Currency,
		&b.PaymentReference,
		&b.CancellationReason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.ExpiresAt,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.ExpiredAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := money.Parse(amount)
	if err != nil {
		return nil, fmt.Errorf("booking %s has unreadable amount: %w", b.ID, err)
	}
	b.Amount = parsed
	b.Status = model.BookingStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func wrapPostgresErr(op string, err error) error {
	if postgres.IsUnavailable(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, bookingserrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
