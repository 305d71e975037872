package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"watchtower.dev/internal/auth"
)

// NormalizeLegacyRoles rewrites stored legacy role labels to their canonical
// form and returns the number of rows changed. Running it again changes
// nothing.
func (s *Store) NormalizeLegacyRoles(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for legacy, canonical := range auth.LegacyAliases() {
		res, err := tx.ExecContext(ctx, s.q(`update users set role = $1 where role = $2`), string(canonical), legacy)
		if err != nil {
			return 0, fmt.Errorf("normalize role %q: %w", legacy, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}
