package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"game-night/internal/config"
	"game-night/internal/db"
	"game-night/internal/drawguess"
	"game-night/internal/sched"
	"game-night/internal/server"
	"game-night/internal/shed"
	"game-night/internal/stats"
	"game-night/internal/timeline"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open()
	if err != nil {
		log.Printf("match archive disabled: %v", err)
		conn = nil
	} else {
		lifetime := time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second
		if err := db.Configure(conn, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, lifetime); err != nil {
			log.Printf("db pool configuration failed: %v", err)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	scheduler := sched.Real()
	debounce := time.Duration(cfg.StatsDebounceSeconds) * time.Second
	drawStats := stats.Open(filepath.Join(cfg.DataDir, "draw_stats.json"), drawguess.Rating, cfg.StatsMinGames, debounce, scheduler)
	timelineStats := stats.Open(filepath.Join(cfg.DataDir, "timeline_stats.json"), timeline.Rating, cfg.StatsMinGames, debounce, scheduler)
	shedStats := stats.Open(filepath.Join(cfg.DataDir, "shed_stats.json"), shed.Rating, cfg.StatsMinGames, debounce, scheduler)

	emptyTTL := time.Duration(cfg.EmptyRoomTTLSeconds) * time.Second
	endedTTL := time.Duration(cfg.EndedRoomTTLSeconds) * time.Second

	draw := drawguess.NewManager(loadWords(cfg), drawStats, scheduler, drawguess.Settings{
		MinPlayers:           cfg.DrawMinPlayers,
		MaxPlayers:           cfg.DrawMaxPlayers,
		Rounds:               cfg.DrawRounds,
		DrawSeconds:          cfg.DrawSeconds,
		ChooseSeconds:        cfg.ChooseSeconds,
		BetweenRoundsSeconds: cfg.BetweenRoundsSeconds,
		EndedResetSeconds:    cfg.EndedResetSeconds,
		CustomWordChance:     cfg.CustomWordChance,
	}, emptyTTL, endedTTL)
	tl := timeline.NewManager(loadSongs(cfg), timelineStats, scheduler, timeline.Settings{
		MinPlayers:        2,
		MaxPlayers:        8,
		TargetLength:      cfg.TimelineTargetLen,
		ListenSeconds:     cfg.ListenSeconds,
		TurnDelaySeconds:  cfg.BotTurnDelaySeconds,
		EndedResetSeconds: cfg.EndedResetSeconds,
	}, emptyTTL, endedTTL)
	cards := shed.NewManager(shedStats, scheduler, shed.Settings{
		MinPlayers:        2,
		MaxPlayers:        6,
		HandSize:          7,
		BotDelaySeconds:   cfg.BotTurnDelaySeconds,
		EndedResetSeconds: cfg.EndedResetSeconds,
	}, emptyTTL, endedTTL)

	srv := server.New(conn, cfg, draw, tl, cards)
	srv.StartSweeps()
	defer srv.Close()

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	log.Printf("game-night server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

func loadWords(cfg config.Config) *drawguess.Pool {
	path := filepath.Join(cfg.DataDir, "words.json")
	pool, err := drawguess.LoadWords(path)
	if err != nil {
		log.Printf("using built-in word list: %v", err)
		return drawguess.DefaultWords()
	}
	return pool
}

func loadSongs(cfg config.Config) *timeline.Catalog {
	path := filepath.Join(cfg.DataDir, "songs.json")
	catalog, err := timeline.LoadSongs(path)
	if err != nil {
		log.Printf("using built-in song catalog: %v", err)
		return timeline.DefaultSongs()
	}
	return catalog
}
