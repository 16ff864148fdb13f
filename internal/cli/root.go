package cli

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/charliek/revive/internal/config"
	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/daemon"
	"github.com/spf13/cobra"
)

// Version is set during build
var Version = "dev"

// Global flags
var (
	configPath string
	apiAddr    string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "revive",
	Short: "Watchdog that rebuilds an unreachable Hetzner server",
	Long: `revive probes one Hetzner Cloud server and, once it stops answering,
deletes it and creates a replacement from the same image, type and location.

It is controlled through a Telegram bot, a local HTTP API and this CLI:
  - revive run [-d]          start the watchdog
  - revive watch <id>        monitor a server
  - revive status            show health of the monitored server
  - revive events [-f]       show or follow the event journal`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// client commands find the API of a running watchdog unless --addr is given
		if cmd.Annotations[clientAnnotation] == "true" && !cmd.Flags().Changed("addr") {
			apiAddr = discoverAPIAddress()
		}
	},
}

const clientAnnotation = "client"

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "revive version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", constants.DefaultConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", constants.DefaultAPIAddress, "API address for client commands")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetVersionTemplate("revive version {{.Version}}\n")

	rootCmd.AddCommand(versionCmd)
}

// loadAPIAddrFromConfig reads the API address from the config file.
// Returns empty string if config doesn't exist or can't be read.
func loadAPIAddrFromConfig() string {
	cfg, err := config.Load(configPath)
	if err != nil {
		return ""
	}

	host := cfg.API.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = constants.DefaultAPIHost
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.API.Port))
}

// discoverAPIAddress finds the API address.
// Priority:
// 1. State file (.revive/revive.state) of a running watchdog
// 2. Config file (revive.yaml)
// 3. Default address
func discoverAPIAddress() string {
	if cwd, err := os.Getwd(); err == nil {
		if state, err := daemon.LoadState(cwd); err == nil {
			return state.Address()
		}
	}

	if addr := loadAPIAddrFromConfig(); addr != "" {
		return addr
	}

	return constants.DefaultAPIAddress
}
