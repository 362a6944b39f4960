package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wsecho/wsecho/internal/api"
	"github.com/wsecho/wsecho/internal/config"
	"github.com/wsecho/wsecho/internal/log"
	"github.com/wsecho/wsecho/internal/server"
	"github.com/wsecho/wsecho/internal/statistics"
)

var (
	AppVersion    = "Development"
	shutdownChain []func() error
)

var rootCmd = &cobra.Command{
	Use:   "wsecho",
	Short: "wsecho is a minimal WebSocket echo server",
	Long:  "wsecho accepts WebSocket upgrades over TCP, sends an optional greeting and echoes every text message back to the client.",
	RunE:  runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Short flags
	rootCmd.Flags().StringP("config", "c", "", "Config file path")
	rootCmd.Flags().StringP("bind", "b", "", "Bind address")
	rootCmd.Flags().IntP("port", "p", 0, "Port")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level")
	rootCmd.Flags().StringP("greeting", "g", "", "Message sent after the handshake, empty to disable")
	rootCmd.Flags().BoolP("version", "v", false, "Show version")
	rootCmd.Flags().Bool("generate-config", false, "Generate template config file")

	// Long flags
	rootCmd.Flags().String("api-server", "", "Management API listen address")
	rootCmd.Flags().String("api-server-secret", "", "Management API secret")
	rootCmd.Flags().Int("history-size", 0, "Closed sessions kept for the API")
	rootCmd.Flags().Duration("history-ttl", 0, "How long closed sessions are kept")

	// Bind all flags to viper using the config file key names
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
	_ = viper.BindPFlag("bind-address", rootCmd.Flags().Lookup("bind"))
	_ = viper.BindPFlag("port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("log-level", rootCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("greeting", rootCmd.Flags().Lookup("greeting"))
	_ = viper.BindPFlag("api-server", rootCmd.Flags().Lookup("api-server"))
	_ = viper.BindPFlag("api-server-secret", rootCmd.Flags().Lookup("api-server-secret"))
	_ = viper.BindPFlag("history.size", rootCmd.Flags().Lookup("history-size"))
	_ = viper.BindPFlag("history.ttl", rootCmd.Flags().Lookup("history-ttl"))

	// Bind environment variables, e.g. WSECHO_BIND_ADDRESS, WSECHO_HISTORY_TTL
	viper.SetEnvPrefix("WSECHO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	// Defaults first so the config file and env only override what they set
	config.SetDefaults()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.MergeInConfig(); err != nil {
			slog.Error("Failed to read config file", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	// Handle -v / --version
	if showVer, _ := cmd.Flags().GetBool("version"); showVer {
		fmt.Printf("wsecho version %s\n", AppVersion)
		return nil
	}

	// Handle --generate-config
	if genConfig, _ := cmd.Flags().GetBool("generate-config"); genConfig {
		if _, err := config.GenerateTemplateConfig(true); err != nil {
			return fmt.Errorf("failed to generate template config: %w", err)
		}
		fmt.Println("Template config file 'config.yaml' generated successfully.")
		return nil
	}

	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Log lines also fan out to /logs subscribers
	lb := log.NewBroadcaster()
	log.SetLogConf(cfg.LogLevel, lb)
	log.LogHeader(AppVersion, cfg)

	// Session statistics
	recorder := statistics.New(cfg)
	recorder.Start()
	addShutdown("recorder.Close", recorder.Close)

	// Echo server
	srv := server.New(cfg, recorder)
	if err := srv.Start(); err != nil {
		slog.Error("srv.Start", slog.Any("error", err))
		shutdown()
		return err
	}
	addShutdown("srv.Close", srv.Close)

	// Management API
	if cfg.APIServer != "" {
		apiSrv := api.New(cfg.APIServer, AppVersion, cfg, recorder, lb)
		if err := apiSrv.Start(); err != nil {
			slog.Error("apiSrv.Start", slog.Any("error", err))
			shutdown()
			return err
		}
		addShutdown("apiSrv.Close", apiSrv.Close)
	}

	// Wait for a termination signal, SIGHUP is ignored
	cleanup := make(chan os.Signal, 1)
	signal.Notify(cleanup, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	for {
		s := <-cleanup
		slog.Info("Received signal", slog.String("signal", s.String()))
		switch s {
		case syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM:
			shutdown()
			return nil
		case syscall.SIGHUP:
		default:
			return nil
		}
	}
}

func addShutdown(name string, fn func() error) {
	shutdownChain = append(shutdownChain, func() error {
		if err := fn(); err != nil {
			slog.Error(name, slog.Any("error", err))
			return err
		}
		return nil
	})
}

// shutdown runs the chain in reverse registration order.
func shutdown() {
	for i := len(shutdownChain) - 1; i >= 0; i-- {
		_ = shutdownChain[i]()
	}
	slog.Info("wsecho exit")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
