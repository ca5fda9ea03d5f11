// Package postgres provides PostgreSQL implementations of the domain
// repositories. All system-of-record state (bookings, partners, ledger
// accounts, outbox) lives here; MongoDB only carries the audit projections.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetops-rental-core/internal/domain/booking"
	"github.com/fleetops-rental-core/internal/platform/persistence"
)

// BookingRepository implements the booking.Repository interface for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const bookingColumns = `id, partner_id, vehicle_id, guest_id,
		booking_status, payment_status, verification_status, trip_status, previous_status,
		daily_rate, subtotal, fees, taxes, total_amount, deposit_amount, commission_rate_bps,
		hold, cancellation, documents, document_request, review, trip,
		version, created_at, updated_at`

// Create stores a new booking in its initial state
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.PartnerID,
		b.VehicleID,
		b.GuestID,
		b.Status.Booking,
		b.Status.Payment,
		b.Status.Verification,
		b.Status.Trip,
		b.Status.PreviousStatus,
		b.DailyRate,
		b.Subtotal,
		b.Fees,
		b.Taxes,
		b.TotalAmount,
		b.DepositAmount,
		b.CommissionRateBps,
		b.Hold,
		b.Cancellation,
		b.Documents,
		b.DocumentRequest,
		b.Review,
		b.Trip,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create booking", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) scanBooking(row pgx.Row) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID,
		&b.PartnerID,
		&b.VehicleID,
		&b.GuestID,
		&b.Status.Booking,
		&b.Status.Payment,
		&b.Status.Verification,
		&b.Status.Trip,
		&b.Status.PreviousStatus,
		&b.DailyRate,
		&b.Subtotal,
		&b.Fees,
		&b.Taxes,
		&b.TotalAmount,
		&b.DepositAmount,
		&b.CommissionRateBps,
		&b.Hold,
		&b.Cancellation,
		&b.Documents,
		&b.DocumentRequest,
		&b.Review,
		&b.Trip,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves a booking by its ID
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`

	b, err := r.scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound{BookingID: id}
		}
		r.logger.Error("Failed to get booking", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return b, nil
}

// GetByPartnerID retrieves paginated bookings for a partner, newest first
func (r *BookingRepository) GetByPartnerID(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE partner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, partnerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get bookings by partner", "partner_id", partnerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get bookings by partner: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			r.logger.Error("Failed to scan booking", "error", err)
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over bookings", "error", err)
		return nil, fmt.Errorf("error iterating over bookings: %w", err)
	}

	return bookings, nil
}

// Update persists a mutated booking using optimistic locking on Version.
// Returns ErrStaleBooking if the booking was modified between read and update.
func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	query := `
		UPDATE bookings
		SET booking_status = $1, payment_status = $2, verification_status = $3, trip_status = $4,
			previous_status = $5, commission_rate_bps = $6,
			hold = $7, cancellation = $8, documents = $9, document_request = $10, review = $11, trip = $12,
			version = $13, updated_at = $14
		WHERE id = $15 AND version = $16
	`

	result, err := r.querier.Exec(ctx, query,
		b.Status.Booking,
		b.Status.Payment,
		b.Status.Verification,
		b.Status.Trip,
		b.Status.PreviousStatus,
		b.CommissionRateBps,
		b.Hold,
		b.Cancellation,
		b.Documents,
		b.DocumentRequest,
		b.Review,
		b.Trip,
		b.Version,
		b.UpdatedAt,
		b.ID,
		b.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update booking", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return booking.ErrStaleBooking{BookingID: b.ID}
	}

	return nil
}

// ListHoldExpiryCandidates returns ON_HOLD bookings whose hold deadline has
// elapsed, oldest first, for the periodic expiry sweep.
func (r *BookingRepository) ListHoldExpiryCandidates(ctx context.Context, limit int) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_status = $1
			AND hold->>'deadline' IS NOT NULL
			AND (hold->>'deadline')::timestamptz <= NOW()
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, booking.StatusOnHold, limit)
	if err != nil {
		r.logger.Error("Failed to list hold expiry candidates", "error", err)
		return nil, fmt.Errorf("failed to list hold expiry candidates: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			r.logger.Error("Failed to scan booking", "error", err)
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over hold expiry candidates", "error", err)
		return nil, fmt.Errorf("error iterating over hold expiry candidates: %w", err)
	}

	return bookings, nil
}

// ListDocumentExpiryCandidates returns non-terminal bookings carrying an
// outstanding document request whose deadline has elapsed, oldest first.
// Disputed bookings are excluded: an expired request never unwinds a
// completed trip.
func (r *BookingRepository) ListDocumentExpiryCandidates(ctx context.Context, limit int) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE document_request IS NOT NULL
			AND (document_request->>'deadline')::timestamptz <= NOW()
			AND booking_status NOT IN ($1, $2, $3, $4)
		ORDER BY created_at ASC
		LIMIT $5
	`

	rows, err := r.querier.Query(ctx, query,
		booking.StatusCompleted, booking.StatusCancelled, booking.StatusNoShow, booking.StatusDisputeReview, limit)
	if err != nil {
		r.logger.Error("Failed to list document expiry candidates", "error", err)
		return nil, fmt.Errorf("failed to list document expiry candidates: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			r.logger.Error("Failed to scan booking", "error", err)
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over document expiry candidates", "error", err)
		return nil, fmt.Errorf("error iterating over document expiry candidates: %w", err)
	}

	return bookings, nil
}
