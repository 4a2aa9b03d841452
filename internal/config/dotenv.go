package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	DataDir string

	SweepIntervalSeconds int
	EmptyRoomTTLSeconds  int
	EndedRoomTTLSeconds  int

	DrawMinPlayers       int
	DrawMaxPlayers       int
	DrawRounds           int
	DrawSeconds          int
	ChooseSeconds        int
	BetweenRoundsSeconds int
	EndedResetSeconds    int
	CustomWordChance     float64

	ListenSeconds     int
	TimelineTargetLen int

	BotTurnDelaySeconds int

	StatsDebounceSeconds int
	StatsMinGames        int
	LeaderboardSize      int

	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
}

func Default() Config {
	return Config{
		DataDir:                  "data",
		SweepIntervalSeconds:     60,
		EmptyRoomTTLSeconds:      300,
		EndedRoomTTLSeconds:      900,
		DrawMinPlayers:           2,
		DrawMaxPlayers:           8,
		DrawRounds:               3,
		DrawSeconds:              80,
		ChooseSeconds:            10,
		BetweenRoundsSeconds:     5,
		EndedResetSeconds:        10,
		CustomWordChance:         0.3,
		ListenSeconds:            30,
		TimelineTargetLen:        10,
		BotTurnDelaySeconds:      2,
		StatsDebounceSeconds:     5,
		StatsMinGames:            3,
		LeaderboardSize:          20,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("DATA_DIR"); raw != "" {
		cfg.DataDir = raw
	}
	intVar(&cfg.SweepIntervalSeconds, "SWEEP_INTERVAL_SECONDS")
	intVar(&cfg.EmptyRoomTTLSeconds, "EMPTY_ROOM_TTL_SECONDS")
	intVar(&cfg.EndedRoomTTLSeconds, "ENDED_ROOM_TTL_SECONDS")
	intVar(&cfg.DrawMinPlayers, "DRAW_MIN_PLAYERS")
	intVar(&cfg.DrawMaxPlayers, "DRAW_MAX_PLAYERS")
	intVar(&cfg.DrawRounds, "DRAW_ROUNDS")
	intVar(&cfg.DrawSeconds, "DRAW_SECONDS")
	intVar(&cfg.ChooseSeconds, "CHOOSE_SECONDS")
	intVar(&cfg.BetweenRoundsSeconds, "BETWEEN_ROUNDS_SECONDS")
	intVar(&cfg.EndedResetSeconds, "ENDED_RESET_SECONDS")
	intVar(&cfg.ListenSeconds, "LISTEN_SECONDS")
	intVar(&cfg.TimelineTargetLen, "TIMELINE_TARGET_LEN")
	intVar(&cfg.BotTurnDelaySeconds, "BOT_TURN_DELAY_SECONDS")
	intVar(&cfg.StatsDebounceSeconds, "STATS_DEBOUNCE_SECONDS")
	intVar(&cfg.StatsMinGames, "STATS_MIN_GAMES")
	intVar(&cfg.LeaderboardSize, "LEADERBOARD_SIZE")
	intVar(&cfg.DBMaxOpenConns, "DB_MAX_OPEN_CONNS")
	intVar(&cfg.DBMaxIdleConns, "DB_MAX_IDLE_CONNS")
	intVar(&cfg.DBConnMaxLifetimeSeconds, "DB_CONN_MAX_LIFETIME_SECONDS")
	if raw := os.Getenv("CUSTOM_WORD_CHANCE"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 && value <= 1 {
			cfg.CustomWordChance = value
		}
	}
	return cfg
}

func intVar(dst *int, key string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dst = value
	}
}
