package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"watchtower.dev/internal/ids"
	"watchtower.dev/internal/settings"
)

var _ settings.Store = (*Store)(nil)

func (s *Store) ListProfileTypes(ctx context.Context) ([]settings.ProfileType, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, status, created_at
		from profile_types
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settings.ProfileType
	for rows.Next() {
		var (
			pt      settings.ProfileType
			status  string
			created timestamp
		)
		if err := rows.Scan(&pt.ID, &pt.Name, &status, &created); err != nil {
			return nil, err
		}
		pt.Status = settings.ProfileStatus(status)
		pt.CreatedAt = created.Time
		result = append(result, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateProfileType relies on the unique name_key column (lower-cased name)
// to reject duplicates regardless of casing.
func (s *Store) CreateProfileType(ctx context.Context, pt settings.ProfileType) (settings.ProfileType, error) {
	if s.db == nil {
		return settings.ProfileType{}, errors.New("database connection unavailable")
	}
	pt.ID = ids.New()
	pt.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		insert into profile_types (id, name, name_key, status, created_at)
		values ($1, $2, $3, $4, $5)
	`), pt.ID, pt.Name, strings.ToLower(pt.Name), string(pt.Status), pt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return settings.ProfileType{}, fmt.Errorf("%w: profile type already exists", settings.ErrConflict)
		}
		return settings.ProfileType{}, err
	}
	return pt, nil
}

const ruleColumns = `id, name, severity, category, threshold, channels, enabled, created_at, updated_at`

func scanRule(row rowScanner) (settings.NotificationRule, error) {
	var (
		rule     settings.NotificationRule
		channels string
		created  timestamp
		updated  timestamp
	)
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Severity, &rule.Category, &rule.Threshold,
		&channels, &rule.Enabled, &created, &updated); err != nil {
		return settings.NotificationRule{}, err
	}
	rule.Channels = splitChannels(channels)
	rule.CreatedAt = created.Time
	rule.UpdatedAt = updated.Time
	return rule, nil
}

func (s *Store) ListNotificationRules(ctx context.Context) ([]settings.NotificationRule, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `select `+ruleColumns+` from notification_rules order by created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settings.NotificationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateNotificationRule(ctx context.Context, rule settings.NotificationRule) (settings.NotificationRule, error) {
	if s.db == nil {
		return settings.NotificationRule{}, errors.New("database connection unavailable")
	}
	rule.ID = ids.New()
	rule.CreatedAt = s.now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	_, err := s.db.ExecContext(ctx, s.q(`
		insert into notification_rules (id, name, severity, category, threshold, channels, enabled, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`), rule.ID, rule.Name, rule.Severity, rule.Category, rule.Threshold, joinChannels(rule.Channels),
		rule.Enabled, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return settings.NotificationRule{}, settings.ErrConflict
		}
		return settings.NotificationRule{}, err
	}
	return rule, nil
}

func (s *Store) SetNotificationRuleEnabled(ctx context.Context, id string, enabled bool) (settings.NotificationRule, error) {
	if s.db == nil {
		return settings.NotificationRule{}, errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		update notification_rules set enabled = $1, updated_at = $2 where id = $3
	`), enabled, s.now().UTC(), id)
	if err != nil {
		return settings.NotificationRule{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return settings.NotificationRule{}, settings.ErrNotFound
	}
	rule, err := scanRule(s.db.QueryRowContext(ctx, s.q(`select `+ruleColumns+` from notification_rules where id = $1`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return settings.NotificationRule{}, settings.ErrNotFound
	}
	return rule, err
}

func (s *Store) DeleteNotificationRule(ctx context.Context, id string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, s.q(`delete from notification_rules where id = $1`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return settings.ErrNotFound
	}
	return nil
}

func joinChannels(chs []settings.Channel) string {
	parts := make([]string, len(chs))
	for i, ch := range chs {
		parts[i] = string(ch)
	}
	return strings.Join(parts, ",")
}

func splitChannels(raw string) []settings.Channel {
	var out []settings.Channel
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, settings.Channel(part))
		}
	}
	return out
}
