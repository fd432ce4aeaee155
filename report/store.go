package report

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kasuganosora/dungeonfighter/model"
)

// ErrNotFound is returned for unknown battle IDs.
var ErrNotFound = errors.New("report: battle not found")

// Standing is one leaderboard row.
type Standing struct {
	Name string `json:"name"`
	Wins int64  `json:"wins"`
}

// Store reads recorded battles.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get loads one battle by ID.
func (s *Store) Get(ctx context.Context, id string) (*model.BattleReport, error) {
	var rep model.BattleReport
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Recent returns up to limit battles, newest first. Line logs are omitted.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.BattleReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var reps []model.BattleReport
	err := s.db.WithContext(ctx).
		Omit("lines").
		Order("created_at DESC").
		Limit(limit).
		Find(&reps).Error
	return reps, err
}

// Leaderboard aggregates player wins from the database.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []Standing
	err := s.db.WithContext(ctx).
		Model(&model.BattleReport{}).
		Select("player_name AS name, COUNT(*) AS wins").
		Where("outcome = ?", model.OutcomePlayerWon).
		Group("player_name").
		Order("wins DESC, name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
