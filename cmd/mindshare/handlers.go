package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/mindshare/internal/config"
	"github.com/elonfeng/mindshare/internal/metrics"
	"github.com/elonfeng/mindshare/internal/scheduler"
	"github.com/elonfeng/mindshare/internal/store"
	"github.com/elonfeng/mindshare/pkg/mindshare"
	"github.com/elonfeng/mindshare/pkg/server"
	"github.com/elonfeng/mindshare/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || cfg.App.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsLocal() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.Store, error) {
	db, err := store.Open(ctx, store.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// openServingStore opens the store for the long-running commands. A store
// that cannot be opened is logged and reported as nil, so the API keeps
// answering with empty leaderboards instead of the process exiting.
func openServingStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) store.Store {
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Database.Driver).Msg("post store unavailable; serving empty leaderboards")
		return nil
	}
	return db
}

func buildService(cfg *config.Config, src source.PostSource, logger *zerolog.Logger) *mindshare.Service {
	lb := cfg.Leaderboard
	rules := mindshare.NewRules(lb.FollowerFloor, lb.QualityFloor, lb.SpecialAccounts)
	return mindshare.NewService(src,
		mindshare.WithRules(rules),
		mindshare.WithFetchLimit(lb.FetchLimit),
		mindshare.WithLogger(logger),
	)
}

func buildCollectors(cfg *config.Config, followers source.FollowerLookup, logger *zerolog.Logger) []source.Collector {
	var collectors []source.Collector

	if x := cfg.Sources.XAPI; x.Enabled {
		collectors = append(collectors, source.NewXSearch(x.BearerToken, x.Query, x.MaxPosts, x.RPM))
	}
	if n := cfg.Sources.Nitter; n.Enabled {
		collectors = append(collectors, source.NewNitter(n.URL, n.Accounts, followers, logger))
	}

	return collectors
}

// selectCollectors keeps the collectors named in wanted. An empty wanted keeps all.
func selectCollectors(all []source.Collector, wanted []string) ([]source.Collector, error) {
	if len(wanted) == 0 {
		return all, nil
	}

	names := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		names[strings.ToLower(strings.TrimSpace(w))] = true
	}

	var selected []source.Collector
	for _, c := range all {
		if names[string(c.Name())] {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no enabled sources match: %s", strings.Join(wanted, ", "))
	}
	return selected, nil
}

func runCollect(ctx context.Context, wanted []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := openStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	collectors, err := selectCollectors(buildCollectors(cfg, db, &logger), wanted)
	if err != nil {
		return err
	}
	if len(collectors) == 0 {
		return errors.New("no sources enabled (set TWITTER_BEARER_TOKEN or enable nitter in config)")
	}

	sched := scheduler.New(db, collectors, nil, &logger, 0, 0, cfg.Sources.CollectWindow())
	if _, err := sched.CollectAll(ctx); err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	return nil
}

func runImport(ctx context.Context, path string, sinceHours int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := openStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var since time.Time
	if sinceHours > 0 {
		since = time.Now().Add(-time.Duration(sinceHours) * time.Hour)
	}

	file := source.NewFile(path)
	posts, err := file.Collect(ctx, since)
	if err != nil {
		return err
	}

	n, err := db.UpsertPosts(ctx, file.Name(), posts)
	if err != nil {
		return fmt.Errorf("store imported posts: %w", err)
	}
	metrics.PostsCollected.WithLabelValues(string(file.Name())).Add(float64(n))

	logger.Info().Str("file", path).Int("read", len(posts)).Int("new", n).Msg("import done")
	return nil
}

func runLeaderboard(ctx context.Context, period string, jsonOutput bool, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	db, err := openStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	res := buildService(cfg, db, &logger).Leaderboard(ctx, mindshare.ParsePeriod(period))
	if res.Err != nil {
		logger.Warn().Err(res.Err).Msg("leaderboard source unavailable")
	}

	entries := res.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return printLeaderboard(os.Stdout, res, entries)
}

func printLeaderboard(out io.Writer, res mindshare.Result, entries []mindshare.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(out, "no qualifying posts since %s (%s)\n",
			res.Since.Format(time.RFC3339), res.Outcome)
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tAUTHOR\tMINDSHARE\tSCORE\tLIKES\tRTS\tQUOTES\tFOLLOWERS")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%.2f%%\t%.2f\t%d\t%d\t%d\t%d\n",
			e.Rank, e.Username, e.Mindshare, e.Score,
			e.Likes, e.Retweets, e.Quotes, e.Followers)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db := openServingStore(ctx, cfg, &logger)
	if db != nil {
		defer db.Close()
	}

	srv := server.New(db, buildService(cfg, db, &logger), &logger, port)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db := openServingStore(ctx, cfg, &logger)
	if db != nil {
		defer db.Close()
	}

	service := buildService(cfg, db, &logger)
	var collectors []source.Collector
	if db != nil {
		collectors = buildCollectors(cfg, db, &logger)
		if len(collectors) == 0 {
			logger.Warn().Msg("no collectors enabled; serving stored posts only")
		}
	} else {
		logger.Warn().Msg("collection disabled: no post store")
	}

	sched := scheduler.New(db, collectors, service, &logger,
		cfg.Schedule.ParseCollectInterval(),
		cfg.Schedule.ParseLeaderboardInterval(),
		cfg.Sources.CollectWindow(),
	)
	srv := server.New(db, service, &logger, port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	err = g.Wait()
	logger.Info().Msg("shut down")
	return err
}
