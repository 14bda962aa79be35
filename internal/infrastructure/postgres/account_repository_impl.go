package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"accounthub/internal/domain/entity"
	"accounthub/internal/domain/repository"
)

const uniqueViolation = "23505"

// Columns that UpdateFields accepts, keyed by the patch field name.
var patchableColumns = map[string]string{
	"first_name": "first_name",
	"last_name":  "last_name",
	"email":      "email",
	"avatar_url": "avatar_url",
	"birthday":   "birthday",
}

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, first_name, last_name, email, password_hash, avatar_url, birthday, created_at, updated_at`

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Password,
		&a.AvatarURL, &a.Birthday, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (first_name, last_name, email, password_hash, avatar_url, birthday)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, a.FirstName, a.LastName, a.Email, a.Password, a.AvatarURL, a.Birthday)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE lower(email) = lower($1)
	`, email)
	return scanAccount(row)
}

func (r *AccountRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	set, args, err := buildUpdateSet(fields)
	if err != nil {
		return err
	}
	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE accounts SET %s, updated_at = now() WHERE id = $%d`, set, len(args))

	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, hash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, hash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM accounts
		WHERE id = $1
		RETURNING `+accountColumns+`
	`, id)
	return scanAccount(row)
}

// buildUpdateSet turns a patch map into a SET clause with positional args.
// Field names are resolved against patchableColumns; anything else is
// rejected so a patch can never touch the password hash or timestamps.
func buildUpdateSet(fields map[string]any) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("%w: no fields to update", repository.ErrInvalidPatch)
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		col, ok := patchableColumns[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: field %q is not updatable", repository.ErrInvalidPatch, name)
		}
		args = append(args, fields[name])
		parts = append(parts, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	return strings.Join(parts, ", "), args, nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
