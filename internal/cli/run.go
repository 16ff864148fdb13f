package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/charliek/revive/internal/api"
	"github.com/charliek/revive/internal/bot"
	"github.com/charliek/revive/internal/config"
	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/daemon"
	"github.com/charliek/revive/internal/domain"
	"github.com/charliek/revive/internal/events"
	"github.com/charliek/revive/internal/notify"
	"github.com/charliek/revive/internal/probe"
	"github.com/charliek/revive/internal/provider"
	"github.com/charliek/revive/internal/watchdog"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	runDetach  bool
	runPort    int
	runTCPPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watchdog",
	Long: `Run the watchdog in the foreground, or in the background with -d.

Secrets (HETZNER_TOKEN, BOT_TOKEN, ADMIN_ID, LOG_CHANNEL_ID) are read from the
env file named in the config and from the process environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runDetach, "detach", "d", false, "Run in background (daemon mode)")
	runCmd.Flags().IntVar(&runPort, "port", 0, "API port (overrides config)")
	runCmd.Flags().IntVar(&runTCPPort, "tcp-port", 0, "Probe this TCP port instead of pinging")
	rootCmd.AddCommand(runCmd)
}

// Components replaces the external collaborators of the service. Nil fields
// are built from the configuration.
type Components struct {
	Gateway provider.Gateway
	Prober  probe.Prober
	Sender  notify.Sender
	Updates bot.Updates
}

// Service is an assembled watchdog process: journal, watchdog, API and bot
type Service struct {
	cfg      *config.Config
	journal  *events.Journal
	watchdog *watchdog.Watchdog
	server   *api.Server
	bot      *bot.Bot
	logger   *slog.Logger

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewService wires every component from cfg. token is the API bearer token;
// empty disables auth.
func NewService(cfg *config.Config, configFile, token string, comps Components, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:      cfg,
		logger:   logger,
		shutdown: make(chan struct{}),
	}

	s.journal = events.NewJournal(events.Config{
		BufferSize:         cfg.Events.BufferSize,
		SubscriptionBuffer: constants.DefaultSubscriptionBuffer,
	}, logger)

	gateway := comps.Gateway
	if gateway == nil {
		gateway = provider.NewHetzner(cfg.Provider, Version, logger)
	}

	prober := comps.Prober
	if prober == nil {
		p, err := probe.New(cfg.Watchdog)
		if err != nil {
			return nil, err
		}
		prober = p
	}

	sender, updates := comps.Sender, comps.Updates
	if cfg.Telegram.Enabled && (sender == nil || updates == nil) {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("connecting to telegram: %w", err)
		}
		if sender == nil {
			sender = botAPI
		}
		if updates == nil {
			updates = botAPI
		}
	}

	notifiers := notify.Multi{notify.NewJournal(s.journal)}
	if cfg.Telegram.Enabled {
		telegram := notify.NewTelegram(sender, cfg.Telegram.RatePerSecond, logger,
			cfg.Telegram.LogChannelID).WithAdmin(cfg.Telegram.AdminID)
		notifiers = append(notifiers, telegram)
	}

	s.watchdog = watchdog.New(watchdog.Options{
		Config:   cfg.Watchdog,
		Retry:    cfg.Retry,
		Prober:   prober,
		Gateway:  gateway,
		Notifier: notify.NewBestEffort(notifiers, logger),
		Events:   s.journal,
		Logger:   logger,
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handlers := api.NewHandlers(s.watchdog, s.journal, configFile, s.requestShutdown, logger)
	s.server = api.NewServer(api.ServerConfig{
		Host:        cfg.API.Host,
		Port:        cfg.API.Port,
		AuthEnabled: token != "",
		Token:       token,
		MetricsPath: metricsPath,
		Logger:      logger,
	}, handlers)

	if cfg.Telegram.Enabled {
		s.bot = bot.New(s.watchdog, sender, updates, cfg.Telegram.AdminID, logger)
	}

	return s, nil
}

// Watchdog returns the service's watchdog
func (s *Service) Watchdog() *watchdog.Watchdog {
	return s.watchdog
}

// Journal returns the service's event journal
func (s *Service) Journal() *events.Journal {
	return s.journal
}

func (s *Service) requestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// Run registers the configured server, if any, and serves until ctx is
// cancelled or a shutdown is requested through the API.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.journal.Close()

	if id := s.cfg.Watchdog.ServerID; id != "" {
		target, err := s.watchdog.RegisterTarget(ctx, id)
		if err != nil {
			// the operator can still register a target through the bot or API
			s.logger.Warn("registering configured server failed", "server_id", id, "error", err)
		} else {
			s.logger.Info("watching configured server", "server_id", target.ServerID, "address", target.Address)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watchdog.Run(gctx)
	})

	g.Go(func() error {
		if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if s.bot != nil {
		g.Go(func() error {
			return s.bot.Run(gctx)
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.shutdown:
			s.logger.Info("shutdown requested")
		}
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer done()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("API server shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func runDaemon(cmd *cobra.Command) error {
	cfg, configFile, err := loadRunConfig(cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if runPort != 0 {
		cfg.API.Port = runPort
	}
	if runTCPPort != 0 {
		cfg.Watchdog.Probe = constants.ProbeTCP
		cfg.Watchdog.TCPPort = runTCPPort
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	configDir := "."
	if configFile != "" {
		configDir = filepath.Dir(configFile)
	}
	if err := config.LoadSecrets(cfg, configDir); err != nil {
		return err
	}
	if err := config.ValidateSecrets(cfg); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	if runDetach && !daemon.IsDaemonChild() {
		if daemon.IsRunning(cwd) {
			return daemon.ErrAlreadyRunning
		}
		if err := daemon.CleanupStaleFiles(cwd); err != nil {
			return err
		}
		pid, err := daemon.Daemonize()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revive started in background (pid %d)\n", pid)
		fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", daemon.LogPath(cwd))
		return nil
	}

	logOut := os.Stderr
	if daemon.IsDaemonChild() {
		f, err := daemon.OpenLog(cwd)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)

	if err := daemon.EnsureStateDir(cwd); err != nil {
		return err
	}
	pidFile := daemon.NewPIDFile(daemon.PIDPath(cwd))
	if err := pidFile.Create(); err != nil {
		return err
	}
	defer pidFile.Release()

	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	svc, err := NewService(cfg, configFile, token, Components{}, logger)
	if err != nil {
		return err
	}

	state := &daemon.State{
		PID:        os.Getpid(),
		Host:       cfg.API.Host,
		Port:       cfg.API.Port,
		StartedAt:  time.Now(),
		ConfigFile: valueOr(configFile, "(defaults)"),
		Version:    Version,
	}
	if err := state.Write(cwd); err != nil {
		return err
	}
	defer func() {
		if err := daemon.RemoveState(cwd); err != nil {
			logger.Warn("removing state file", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("revive started", "version", Version, "pid", state.PID, "api", state.Address())
	err = svc.Run(ctx)
	logger.Info("revive stopped")
	return err
}

// loadRunConfig loads the config file, falling back to defaults when it does
// not exist and was not named explicitly. The returned path is empty when
// defaults are used.
func loadRunConfig(explicit bool) (*config.Config, string, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, configPath, nil
	}
	if explicit || !errors.Is(err, domain.ErrConfigNotFound) {
		return nil, "", err
	}
	return config.Default(), "", nil
}
