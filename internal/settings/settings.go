// Package settings manages console configuration records: profile types and
// notification rules.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"watchtower.dev/internal/ids"
)

var (
	ErrNotFound     = errors.New("settings: not found")
	ErrConflict     = errors.New("settings: conflict")
	ErrInvalidInput = errors.New("settings: invalid input")
)

// ProfileStatus is the state of a profile type.
type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "Active"
	ProfileInactive ProfileStatus = "Inactive"
)

type ProfileType struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    ProfileStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelEmail   Channel = "Email"
	ChannelSMS     Channel = "SMS"
	ChannelSlack   Channel = "Slack"
	ChannelWebhook Channel = "Webhook"
)

var channels = []Channel{ChannelEmail, ChannelSMS, ChannelSlack, ChannelWebhook}

// Severity levels mirror the IDS alert scale.
var severities = []string{"Critical", "High", "Medium", "Low"}

type NotificationRule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category"`
	Threshold int       `json:"threshold"`
	Channels  []Channel `json:"channels"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists settings records.
type Store interface {
	ListProfileTypes(ctx context.Context) ([]ProfileType, error)
	CreateProfileType(ctx context.Context, pt ProfileType) (ProfileType, error)
	ListNotificationRules(ctx context.Context) ([]NotificationRule, error)
	CreateNotificationRule(ctx context.Context, rule NotificationRule) (NotificationRule, error)
	SetNotificationRuleEnabled(ctx context.Context, id string, enabled bool) (NotificationRule, error)
	DeleteNotificationRule(ctx context.Context, id string) error
}

// Service validates requests before they reach the store.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("settings store is required")
	}
	return &Service{store: store}, nil
}

func (s *Service) ListProfileTypes(ctx context.Context) ([]ProfileType, error) {
	return s.store.ListProfileTypes(ctx)
}

// CreateProfileType rejects names that already exist in any casing.
func (s *Service) CreateProfileType(ctx context.Context, name, status string) (ProfileType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ProfileType{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	st, err := parseProfileStatus(status)
	if err != nil {
		return ProfileType{}, err
	}
	return s.store.CreateProfileType(ctx, ProfileType{Name: name, Status: st})
}

func parseProfileStatus(raw string) (ProfileStatus, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ProfileActive, nil
	case strings.EqualFold(raw, string(ProfileActive)):
		return ProfileActive, nil
	case strings.EqualFold(raw, string(ProfileInactive)):
		return ProfileInactive, nil
	}
	return "", fmt.Errorf("%w: status must be Active or Inactive", ErrInvalidInput)
}

// NewRule is the input for CreateNotificationRule.
type NewRule struct {
	Name      string   `json:"name"`
	Severity  string   `json:"severity"`
	Category  string   `json:"category"`
	Threshold int      `json:"threshold"`
	Channels  []string `json:"channels"`
	Enabled   *bool    `json:"enabled"`
}

func (s *Service) ListNotificationRules(ctx context.Context) ([]NotificationRule, error) {
	return s.store.ListNotificationRules(ctx)
}

func (s *Service) CreateNotificationRule(ctx context.Context, in NewRule) (NotificationRule, error) {
	rule := NotificationRule{
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		Threshold: in.Threshold,
		Enabled:   true,
	}
	if rule.Name == "" || rule.Category == "" || strings.TrimSpace(in.Severity) == "" {
		return NotificationRule{}, fmt.Errorf("%w: name, severity and category are required", ErrInvalidInput)
	}
	sev, ok := match(in.Severity, severities)
	if !ok {
		return NotificationRule{}, fmt.Errorf("%w: unsupported severity %s", ErrInvalidInput, in.Severity)
	}
	rule.Severity = sev
	if rule.Threshold < 1 {
		return NotificationRule{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidInput)
	}
	if len(in.Channels) == 0 {
		return NotificationRule{}, fmt.Errorf("%w: at least one channel is required", ErrInvalidInput)
	}
	seen := make(map[Channel]bool, len(in.Channels))
	for _, raw := range in.Channels {
		ch, err := ParseChannel(raw)
		if err != nil {
			return NotificationRule{}, err
		}
		if !seen[ch] {
			seen[ch] = true
			rule.Channels = append(rule.Channels, ch)
		}
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	return s.store.CreateNotificationRule(ctx, rule)
}

func (s *Service) SetNotificationRuleEnabled(ctx context.Context, id string, enabled bool) (NotificationRule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return NotificationRule{}, fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if !ids.Valid(id) {
		return NotificationRule{}, ErrNotFound
	}
	return s.store.SetNotificationRuleEnabled(ctx, id, enabled)
}

func (s *Service) DeleteNotificationRule(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if !ids.Valid(id) {
		return ErrNotFound
	}
	return s.store.DeleteNotificationRule(ctx, id)
}

// ParseChannel accepts any casing of a known channel.
func ParseChannel(raw string) (Channel, error) {
	for _, ch := range channels {
		if strings.EqualFold(strings.TrimSpace(raw), string(ch)) {
			return ch, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported channel %s", ErrInvalidInput, raw)
}

func match(raw string, allowed []string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, v := range allowed {
		if strings.EqualFold(raw, v) {
			return v, true
		}
	}
	return "", false
}
