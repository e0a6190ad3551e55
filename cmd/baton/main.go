package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"baton/internal/bridge"
	"baton/internal/config"
	"baton/internal/discord"
	"baton/internal/history"
	"baton/internal/ngrok"
	"baton/internal/player"
	"baton/internal/probe"
	"baton/internal/server"
	"baton/internal/spotify"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	flag.Parse()

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Optional .env next to the binary; real env vars win.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, cfg.Logging)

	clientID := cfg.Spotify.ClientID
	if clientID == "" {
		clientID = os.Getenv("SPOTIFY_CLIENT_ID")
	}

	// Playerctl bridge and optional local-file prober
	bridgeClient := bridge.NewClient(cfg.Bridge)

	var fileProber player.FileProber
	var artProber server.ArtworkProber
	if cfg.Player.ProbeFiles {
		p := probe.New(logger)
		fileProber = p
		artProber = p
	}

	// Spotify credentials and API client
	tokenStore := spotify.NewFileStore(cfg.Spotify.TokenFile)

	var controlSurface *server.Server
	notify := func(message string) {
		if controlSurface != nil {
			controlSurface.Notify(message)
		}
	}

	tokens, err := spotify.NewTokenManager(clientID, cfg.RedirectURI(), tokenStore, logger, notify)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing token manager")
	}
	spotifyClient := spotify.NewClient(tokens, logger)
	callback := spotify.NewCallbackListener(tokens, cfg.Spotify.RedirectPort, logger)

	// Backends and the manager that owns them
	local := player.NewLocalBackend(bridgeClient, fileProber, logger)
	remote := player.NewRemoteBackend(spotifyClient, logger)

	mode, err := player.ParseMode(cfg.Player.Backend)
	if err != nil {
		logger.WithError(err).Fatal("Error parsing backend mode")
	}

	manager := player.NewManager(local, remote, mode,
		time.Duration(cfg.Player.PollMs)*time.Millisecond, logger)
	router := player.NewRouter(manager.Backend)

	// Playback history
	var historyStore *history.Store
	if cfg.History.Enabled {
		historyStore, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			logger.WithError(err).Fatal("Error opening history database")
		}
		defer historyStore.Close()

		recorder := history.NewRecorder(historyStore, logger)
		manager.Subscribe(func(state player.State) {
			recorder.Observe(state.TrackKey(), state.Playing,
				state.Title, state.Artist, state.Album, string(manager.Mode()))
		})
	}

	// Discord Rich Presence
	if cfg.Discord.Enabled {
		rpc := discord.NewRPCService(&cfg.Discord, logger)
		if err := rpc.Connect(); err != nil {
			logger.WithError(err).Warn("Could not connect to Discord")
		}
		defer rpc.Disconnect()
		manager.Subscribe(rpc.Observe)
	}

	// Optional ngrok tunnel for the control surface
	tunnel, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing ngrok service")
	}

	controlSurface = server.New(cfg, logger, server.Deps{
		Manager:  manager,
		Router:   router,
		Tokens:   tokens,
		Callback: callback,
		Bridge:   bridgeClient,
		History:  historyStore,
		Prober:   artProber,
		Ngrok:    tunnel,
	})

	watcher, err := controlSurface.WatchConfig(*configPath)
	if err != nil {
		logger.WithError(err).Warn("Could not watch config file")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := controlSurface.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	watcher.Stop()
	controlSurface.Shutdown()
}

// configureLogger applies level, format and output file from the config
func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stderr")
			return
		}
		logger.SetOutput(file)
	}
}
