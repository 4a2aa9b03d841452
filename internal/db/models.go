package db

import (
	"time"

	"gorm.io/datatypes"
)

// Match is one completed game of any type. Live room state stays in memory;
// only finished games are archived.
type Match struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"size:64;uniqueIndex;not null"`
	GameType  string    `gorm:"size:32;index;not null"`
	RoomName  string    `gorm:"size:64;not null"`
	Reason    string    `gorm:"size:64"`
	WinnerID  string    `gorm:"size:64"`
	StartedAt time.Time
	EndedAt   time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Results   []MatchResult
	Events    []MatchEvent
}

type MatchResult struct {
	ID        uint      `gorm:"primaryKey"`
	MatchID   uint      `gorm:"index;not null;uniqueIndex:idx_results_match_player"`
	PlayerID  string    `gorm:"size:64;not null;uniqueIndex:idx_results_match_player"`
	Name      string    `gorm:"size:64;not null"`
	Score     int       `gorm:"not null"`
	Placement int       `gorm:"not null"`
	Won       bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type MatchEvent struct {
	ID        uint           `gorm:"primaryKey"`
	MatchID   uint           `gorm:"index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}
