package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"watchtower.dev/internal/auth"
)

var _ auth.Store = (*Store)(nil)

const accountColumns = `id, name, email, role, status, password_hash, created_at, last_active_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (auth.Account, error) {
	var (
		acc        auth.Account
		role       string
		status     string
		created    timestamp
		lastActive timestamp
	)
	if err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &role, &status, &acc.PasswordHash, &created, &lastActive); err != nil {
		return auth.Account{}, err
	}
	acc.Role = auth.NormalizeRole(role)
	acc.Status = auth.Status(status)
	if parsed, err := auth.ParseStatus(status); err == nil {
		acc.Status = parsed
	}
	acc.CreatedAt = created.Time
	acc.LastActiveAt = lastActive.ptr()
	return acc, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, s.q(`
		select `+accountColumns+`
		from users
		where email = $1
	`), auth.NormalizeEmail(email))
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrNotFound
	}
	return acc, err
}

func (s *Store) FindByID(ctx context.Context, id string) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, s.q(`
		select `+accountColumns+`
		from users
		where id = $1
	`), id)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrNotFound
	}
	return acc, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]auth.Account, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+`
		from users
		order by created_at desc, email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateAccount inserts acc. Email uniqueness is decided by the unique index
// on users.email, so concurrent inserts of one address yield one row.
func (s *Store) CreateAccount(ctx context.Context, acc auth.Account) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errors.New("database connection unavailable")
	}
	acc.Email = auth.NormalizeEmail(acc.Email)
	acc.Role = auth.NormalizeRole(string(acc.Role))
	if acc.Status == "" {
		acc.Status = auth.StatusActive
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = s.now().UTC()
	}
	acc.CreatedAt = acc.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, s.q(`
		insert into users (id, name, email, role, status, password_hash, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`), acc.ID, acc.Name, acc.Email, string(acc.Role), string(acc.Status), acc.PasswordHash, acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Account{}, fmt.Errorf("%w: email already exists", auth.ErrConflict)
		}
		return auth.Account{}, err
	}
	return acc, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id string, upd auth.AccountUpdate) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errors.New("database connection unavailable")
	}
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	idx := 1

	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, strings.TrimSpace(*upd.Name))
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, auth.NormalizeEmail(*upd.Email))
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, string(auth.NormalizeRole(string(*upd.Role))))
		idx++
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(*upd.Status))
		idx++
	}
	if upd.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.PasswordHash)
		idx++
	}

	if len(sets) == 0 {
		return s.FindByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("update users set %s where id = $%d", strings.Join(sets, ", "), idx)
	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Account{}, fmt.Errorf("%w: email already exists", auth.ErrConflict)
		}
		return auth.Account{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.Account{}, auth.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, s.q(`delete from users where id = $1`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, s.q(`update users set last_active_at = $1 where id = $2`), at.UTC(), id)
	return err
}
