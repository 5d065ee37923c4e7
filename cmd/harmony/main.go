// Package main provides the harmony command line player.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/app/catalog"
	"github.com/osa030/harmony/internal/infra/config"
	"github.com/osa030/harmony/internal/infra/favorites"
	"github.com/osa030/harmony/internal/infra/logger"
	"github.com/osa030/harmony/internal/infra/spotify"
)

var (
	app        = kingpin.New("harmony", "Play track previews from music catalogs")
	configPath = app.Flag("config", "Path to config file").Default("config/harmony.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// play command
	playCmd       = app.Command("play", "Open a track and control it from a prompt")
	playRef       = playCmd.Arg("ref", "Track reference (iTunes ID, Spotify URL or URI)").Required().String()
	playEphemeral = playCmd.Flag("ephemeral", "Keep favorites in memory only").Bool()

	// search command
	searchCmd  = app.Command("search", "Search the configured catalogs")
	searchTerm = searchCmd.Arg("term", "Search term").Required().Strings()

	// favorites command
	favoritesCmd = app.Command("favorites", "List favorite tracks")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logCloser, err := logger.Init(loggerConfig(nil))
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Error().Msgf("Failed to load config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case playCmd.FullCommand():
		err = runPlay(ctx, cfg, *playRef, *playEphemeral)
	case searchCmd.FullCommand():
		err = runSearch(ctx, cfg, strings.Join(*searchTerm, " "))
	case favoritesCmd.FullCommand():
		err = runFavorites(ctx, cfg, os.Stdout)
	}
	if err != nil {
		zlog.Error().Msgf("%s: %v", command, err)
		stop()
		os.Exit(1)
	}
}

// loggerConfig builds the logger configuration from command-line flags.
// console, when set, receives console output instead of stderr.
func loggerConfig(console io.Writer) logger.Config {
	cfg := logger.Config{
		Output: "stderr",
		Level:  "info",
		Writer: console,
	}
	if *verbose {
		cfg.Level = "debug"
	}
	if *logfile != "" {
		cfg.Output = *logfile
		cfg.Writer = nil
	}
	return cfg
}

// loadConfig loads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		zlog.Debug().Msgf("Config file not found, using defaults: path=%s", path)
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	zlog.Debug().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// newCatalog creates the catalog chain. The Spotify client is only created
// when a spotify source is configured.
func newCatalog(ctx context.Context, cfg *config.Config) (*catalog.Chain, error) {
	var sp catalog.SpotifyClient
	if cfg.HasSource(config.SourceSpotify) {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		sp = client
	}
	return catalog.NewChainFromConfig(cfg, sp)
}

func runSearch(ctx context.Context, cfg *config.Config, term string) error {
	chain, err := newCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	results, err := chain.Search(ctx, term)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No tracks found.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("  %-32s %-24s %-28s %s\n",
			truncate(r.Track.Title, 32), truncate(r.Track.Artist, 24), truncate(r.Track.CollectionName, 28), r.DisplayName)
	}
	return nil
}

func runFavorites(ctx context.Context, cfg *config.Config, w io.Writer) error {
	store, err := favorites.OpenFileStore(cfg.Favorites.Path)
	if err != nil {
		return err
	}
	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No favorites yet.")
		return nil
	}
	for _, f := range list {
		fmt.Fprintf(w, "  %-12d %-32s %-24s %s\n",
			f.Track.ID, truncate(f.Track.Title, 32), truncate(f.Track.Artist, 24), humanize.Time(f.AddedAt))
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
