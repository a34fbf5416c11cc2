package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/parleyhq/parley/internal/apperror"
)

// mysqlDuplicateEntry is the MySQL/MariaDB error number for a unique-key
// violation (phone or email already taken).
const mysqlDuplicateEntry = 1062

// Repository defines the data access contract for user records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*User, error)
	Update(ctx context.Context, id string, patch Patch) (*User, error)
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a user repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// userColumns is the select list shared by every find query.
const userColumns = `id, phone, email, provider, provider_id, password_hash, created_at, updated_at`

// Create inserts a new user row.
// Returns apperror.Conflict when phone or email is already taken.
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, phone, email, provider, provider_id, password_hash, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Phone,
		user.Email,
		user.Provider,
		user.ProviderID,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("an account with this phone or email already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by primary key.
// Returns apperror.NotFound if no user exists with this ID.
func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// FindByPhone retrieves a user by phone number.
func (r *repository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
}

// FindByEmail retrieves a user by email address.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// FindByProvider retrieves a user by its external provider pair.
func (r *repository) FindByProvider(ctx context.Context, provider, providerID string) (*User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_id = ?`,
		provider, providerID)
}

// Update applies the non-nil patch fields and returns the fresh row.
// Returns apperror.NotFound if no user exists with this ID.
func (r *repository) Update(ctx context.Context, id string, patch Patch) (*User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if patch.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *patch.Phone)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *patch.PasswordHash)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = NOW()")
		args = append(args, id)

		query := "UPDATE users SET " + joinSets(sets) + " WHERE id = ?"
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
				return nil, apperror.NewConflict("an account with this phone or email already exists")
			}
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}

	// The follow-up read returns the fresh row, or NotFound for a missing ID.
	return r.FindByID(ctx, id)
}

// findOne runs a single-row user query and maps sql.ErrNoRows to NotFound.
func (r *repository) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	user := &User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Phone,
		&user.Email,
		&user.Provider,
		&user.ProviderID,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return user, nil
}

// joinSets joins SET clauses with commas.
func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
