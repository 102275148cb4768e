package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"thirdcoast.systems/reelgrab/internal/i18n"
)

// Store is the bot's persistence: user language preferences, activity and
// delivered videos.
type Store struct {
	dbc *DatabaseConnection
}

func NewStore(dbc *DatabaseConnection) *Store {
	return &Store{dbc: dbc}
}

// Language returns the user's stored language, or i18n.Default for unknown
// users.
func (s *Store) Language(ctx context.Context, userID int64) (i18n.Lang, error) {
	lang, err := s.dbc.Queries(ctx).GetUserLanguage(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return i18n.Default, nil
	}
	if err != nil {
		return i18n.Default, fmt.Errorf("get user language: %w", err)
	}
	return lang.OrDefault(), nil
}

func (s *Store) SetLanguage(ctx context.Context, userID int64, lang i18n.Lang) error {
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q", lang)
	}
	return s.dbc.Queries(ctx).SetUserLanguage(ctx, &SetUserLanguageParams{UserID: userID, Language: lang})
}

// Register inserts userID if it is not known yet and reports whether it was
// new.
func (s *Store) Register(ctx context.Context, userID int64) (bool, error) {
	q, tx, err := s.dbc.NewWithTX(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	exists, err := q.UserExists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := q.InsertUser(ctx, userID); err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return true, tx.Commit(ctx)
}

func (s *Store) RecordActivity(ctx context.Context, userID int64) error {
	return s.dbc.Queries(ctx).MarkUserActive(ctx, userID)
}

func (s *Store) RecordDelivery(ctx context.Context, userID int64) error {
	return s.dbc.Queries(ctx).InsertVideo(ctx, userID)
}

// DailyStats are the counts reported to admins.
type DailyStats struct {
	Day         time.Time `json:"day"`
	ActiveUsers int64     `json:"active_users"`
	Videos      int64     `json:"videos"`
}

// Stats counts users active and videos delivered on the calendar day of day,
// in day's location.
func (s *Store) Stats(ctx context.Context, day time.Time) (DailyStats, error) {
	since, until := DayBounds(day)
	q := s.dbc.Queries(ctx)

	users, err := q.CountActiveUsers(ctx, &CountActiveUsersParams{Since: since, Until: until})
	if err != nil {
		return DailyStats{}, fmt.Errorf("count active users: %w", err)
	}
	videos, err := q.CountVideos(ctx, &CountVideosParams{Since: since, Until: until})
	if err != nil {
		return DailyStats{}, fmt.Errorf("count videos: %w", err)
	}
	return DailyStats{Day: since.Time, ActiveUsers: users, Videos: videos}, nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.dbc.Ping(ctx)
}
