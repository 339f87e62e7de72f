package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/todoboard/internal/client"
	"github.com/alfredjeanlab/todoboard/internal/config"
	"github.com/alfredjeanlab/todoboard/internal/events"
	"github.com/alfredjeanlab/todoboard/internal/idgen"
	"github.com/alfredjeanlab/todoboard/internal/querycache"
	"github.com/alfredjeanlab/todoboard/internal/todos"
	"github.com/alfredjeanlab/todoboard/internal/ui"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	basePath   string
	jsonOutput bool
	logLevel   string
	logFormat  string

	cfg        *config.Config
	logger     *slog.Logger
	todoClient *client.HTTPClient
	cache      *querycache.Cache
	publisher  events.Publisher
	svc        *todos.Service
	origin     string

	// notifier receives mutation notices; commands that render their own
	// notices replace it before touching the service.
	notifier = &switchNotifier{}
)

// switchNotifier forwards to a replaceable target.
type switchNotifier struct {
	target todos.Notifier
}

func (s *switchNotifier) Notify(n todos.Notice) {
	if s.target != nil {
		s.target.Notify(n)
	}
}

var rootCmd = &cobra.Command{
	Use:           "td <command>",
	Short:         "Command-line client for the todo board service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func setup() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if apiURL == "" {
		apiURL = cfg.APIURL
	}
	if basePath == "" {
		basePath = cfg.BasePath
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if logFormat == "" {
		logFormat = cfg.LogFormat
	}

	logger, err = newLogger(os.Stderr, logLevel, logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}

	todoClient = client.NewHTTPClient(apiURL,
		client.WithBasePath(basePath),
		client.WithToken(cfg.Token),
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(logger),
	)
	cache = querycache.New(querycache.Options{
		StaleTime:  cfg.StaleTime,
		Retry:      cfg.ReadRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	publisher = &events.NoopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Warn("events disabled", "err", err)
		} else {
			publisher = p
		}
	}

	origin, err = idgen.WithPrefix("td-")
	if err != nil {
		return err
	}
	notifier.target = todos.LogNotifier{Logger: logger}
	svc = todos.New(todos.Options{
		Client:          todoClient,
		Cache:           cache,
		Notifier:        notifier,
		Publisher:       publisher,
		Logger:          logger,
		ListsStaleTime:  cfg.ListsStaleTime,
		DetailStaleTime: cfg.StaleTime,
		Origin:          origin,
	})
	return nil
}

// teardown releases what setup created. It runs after every command,
// including failed ones and the remote subcommands that skip setup.
func teardown() {
	if p, ok := publisher.(*events.NATSPublisher); ok && cfg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		if err := p.Flush(ctx); err != nil {
			logger.Warn("flushing events", "err", err)
		}
		cancel()
	}
	if publisher != nil {
		publisher.Close()
	}
	if cache != nil {
		cache.Close()
	}
	if todoClient != nil {
		todoClient.Close()
	}
	publisher, cache, todoClient, svc = nil, nil, nil, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (must be text or json)", format)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "todo service URL (default $TODOBOARD_API_URL, the active remote, or http://localhost:8000)")
	rootCmd.PersistentFlags().StringVar(&basePath, "base-path", "", "API base path (default $TODOBOARD_BASE_PATH or /api)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default warn)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default text)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "lists", Title: "Lists:"},
		&cobra.Group{ID: "items", Title: "Items:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Lists
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createListCmd)
	rootCmd.AddCommand(renameListCmd)
	rootCmd.AddCommand(deleteListCmd)

	// Items
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(rmCmd)

	// Views
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	teardown()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
