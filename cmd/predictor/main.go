package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/nba-predictor/internal/config"
	"github.com/Alias1177/nba-predictor/internal/database"
	"github.com/Alias1177/nba-predictor/internal/features"
	"github.com/Alias1177/nba-predictor/internal/ledger"
	"github.com/Alias1177/nba-predictor/internal/metrics"
	"github.com/Alias1177/nba-predictor/internal/model"
	"github.com/Alias1177/nba-predictor/internal/notify"
	phttp "github.com/Alias1177/nba-predictor/internal/platform/http"
	"github.com/Alias1177/nba-predictor/internal/repository"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitNoGames = 2
	exitPartial = 3
)

const usage = `Usage: predictor <command> [flags] [args]

Commands:
  predict  [date]   predict a day's games (date is YYYY-MM-DD in -zone, default today)
  grade    [days]   record final scores for pending predictions and report accuracy
  evaluate [days]   report accuracy of already graded predictions without recording anything
  backtest [days]   dry-run the models over completed games, nothing is written
  backfill [days]   replay completed games and write them to the ledger under the backfill version

grade and evaluate report MODEL_VERSION by default; pass -version= to include every version.
backtest -models DIR always loads artifacts from DIR, even when MODEL_SERVER_URL is set.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return exitFatal
	}
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(os.Stdout, usage)
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitFatal
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return exitFatal
	}
	defer a.close()

	command, rest := args[0], args[1:]
	var code int
	switch command {
	case "predict":
		code = a.predict(ctx, rest)
	case "grade":
		code = a.grade(ctx, rest)
	case "evaluate":
		code = a.evaluate(ctx, rest)
	case "backtest":
		code = a.backtest(ctx, rest)
	case "backfill":
		code = a.backfill(ctx, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return exitFatal
	}

	if err := a.metrics.Push(cfg.PushgatewayURL, "nba_predictor_"+command); err != nil {
		a.logger.Warn().Err(err).Msg("Could not push run metrics")
	}
	return code
}

func setupLogger(cfg *config.Config) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(lvl)
}

// app holds the shared dependencies of every command.
type app struct {
	cfg      *config.Config
	db       *database.DB
	store    *repository.SQLFeatureStore
	ledger   *ledger.Ledger
	notifier notify.Notifier
	metrics  *metrics.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func newApp(cfg *config.Config) (*app, error) {
	rec := metrics.New()
	logger := log.With().Str("run_id", rec.RunID()).Logger()

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			// the digest is optional, the run goes on without it
			logger.Warn().Err(err).Msg("Telegram digest disabled")
		} else {
			notifier = tg
		}
	}

	return &app{
		cfg:      cfg,
		db:       db,
		store:    repository.NewSQLFeatureStore(db),
		ledger:   ledger.New(db),
		notifier: notifier,
		metrics:  rec,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Closing database")
	}
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	if cfg.Database.Driver == "sqlite" {
		db, err := database.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Database.Path, err)
		}
		return db, nil
	}
	db, err := database.New(database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// loadModels binds the three models from dir when one is given. Otherwise it uses the model
// server if configured and the configured model directory if not.
func (a *app) loadModels(ctx context.Context, dir string) (*model.Set, error) {
	expected := features.Names()
	if dir != "" {
		return model.LoadDir(dir, expected)
	}
	if a.cfg.ModelServerURL != "" {
		client := phttp.NewClient(phttp.ClientOptions{
			Timeout:        time.Duration(a.cfg.RequestTimeout) * time.Second,
			RequestsPerSec: 20,
		})
		return model.LoadRemote(ctx, model.NewRemoteClient(a.cfg.ModelServerURL, client), expected)
	}
	return model.LoadDir(a.cfg.ModelDir, expected)
}

func (a *app) deliver(ctx context.Context, text string) {
	fmt.Println(text)
	if err := a.notifier.Send(ctx, text); err != nil {
		a.logger.Warn().Err(err).Msg("Digest not delivered")
	}
}
