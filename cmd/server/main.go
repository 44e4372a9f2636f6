package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/undercoverparty/backend/internal/api"
	"github.com/undercoverparty/backend/internal/config"
	"github.com/undercoverparty/backend/internal/game"
	"github.com/undercoverparty/backend/internal/words"
	"github.com/undercoverparty/backend/internal/words/anthropic"
	"github.com/undercoverparty/backend/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Undercover Party - real-time impostor word game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  ANTHROPIC_API_KEY   API key for the word generator (optional; falls back to the built-in list)
  ANTHROPIC_BASE_URL  Custom API base URL (optional)
  WORD_MODEL          Model used for word generation
  CATEGORY_PASSCODE   Shared secret required to pick a custom word category
  REAP_INTERVAL       How often to sweep for abandoned games (default: 60s)
  REAP_TIMEOUT        Inactivity threshold before a game is deleted (default: 5m)
  EXPORT_ENABLED      Append round results to a text file (default: false)
  EXPORT_FILE         Path of the results file (default: ./round-results.txt)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("undercoverparty %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(cw)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// Gin setup with custom logger (skip /ws noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/ws") {
			return
		}
		log.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Engine, broadcast layer and word source
	source := words.NewSource(anthropic.New(cfg.AnthropicKey, cfg.AnthropicBaseURL, cfg.WordModel))
	mgr := game.NewManager(source)
	hub := ws.NewHub()
	sock := ws.New(mgr, hub, cfg.CategoryPasscode)
	if cfg.ExportEnabled {
		sock.EnableExport(cfg.ExportFile)
	}
	sock.Mount(r)
	api.New(mgr, hub, sock, cfg.CategoryPasscode).Mount(r)

	// Inactivity reaper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reaper := game.NewReaper(mgr, cfg.ReapInterval, cfg.ReapTimeout, func(code string) {
		hub.Broadcast(code, ws.Message{Type: ws.MsgGameDeleted, Data: gin.H{"reason": "timeout"}})
		hub.DropGame(code)
	})
	go reaper.Run(ctx)

	log.Info().Str("port", port).Msg("listening")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
