package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-iot/internal/iot/provisioning"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Repository stores and retrieves assignments.
type Repository interface {
	Save(ctx context.Context, a *Assignment) error
	Latest(ctx context.Context, registrationID string) (*Assignment, error)
	Delete(ctx context.Context, registrationID string) (int64, error)
}

// SQLiteRepository keeps assignments in the assignments table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository over db. The schema must already
// be migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts a. The ID and CreatedAt are generated when empty.
func (r *SQLiteRepository) Save(ctx context.Context, a *Assignment) error {
	if a.RegistrationID == "" {
		return fmt.Errorf("%w: empty registration id", ErrInvalidAssignment)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assignments (id, registration_id, operation_id, status, assigned_hub,
		 device_id, extended_error_code, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RegistrationID, a.OperationID, a.Status.String(), a.AssignedHub,
		a.DeviceID, int64(a.ExtendedErrorCode), a.ErrorMessage,
		a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting assignment: %w", err)
	}
	return nil
}

// Latest returns the newest assignment for registrationID, or ErrNotFound.
func (r *SQLiteRepository) Latest(ctx context.Context, registrationID string) (*Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, registration_id, operation_id, status, assigned_hub, device_id,
		 extended_error_code, error_message, created_at
		 FROM assignments WHERE registration_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		registrationID,
	)

	var (
		a         Assignment
		status    string
		errCode   int64
		createdAt string
	)
	err := row.Scan(&a.ID, &a.RegistrationID, &a.OperationID, &status, &a.AssignedHub,
		&a.DeviceID, &errCode, &a.ErrorMessage, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying assignment: %w", err)
	}

	s, ok := provisioning.ParseOperationStatus(status)
	if !ok {
		return nil, fmt.Errorf("assignment %s: unknown status %q", a.ID, status)
	}
	a.Status = s
	a.ExtendedErrorCode = uint32(errCode) //nolint:gosec // Written from a uint32 by Save
	a.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("assignment %s: parsing created_at: %w", a.ID, err)
	}
	return &a, nil
}

// Delete removes every assignment for registrationID and reports how many
// rows went.
func (r *SQLiteRepository) Delete(ctx context.Context, registrationID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assignments WHERE registration_id = ?", registrationID)
	if err != nil {
		return 0, fmt.Errorf("deleting assignments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting assignments: %w", err)
	}
	return n, nil
}
