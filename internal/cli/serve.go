package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and mini-app HTTP server",
	Long: `Serve starts the HTTP server that Telegram delivers updates to.

Endpoints:
  POST /api/webhook           Telegram Bot API updates
  POST /api/miniapp/analyze   {"text": "..."} from the mini-app
  GET  /healthz               liveness probe

Register the public URL of /api/webhook with 'findorigin webhook set'.

Example:
  findorigin serve
  findorigin serve --addr :9000 --facts-only`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("no-miniapp", false, "disable the mini-app endpoint")
	serveCmd.Flags().Bool("facts-only", false, "reply with extracted facts, skip the language model")
	serveCmd.Flags().Bool("search", false, "enable Google search (needs GOOGLE_API_KEY and GOOGLE_CX)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := applyCommonFlags(cmd); err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		viper.Set("server.addr", addr)
	}
	if off, _ := cmd.Flags().GetBool("no-miniapp"); off {
		viper.Set("server.miniapp_enabled", false)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	if cfg.Telegram.BotToken == "" {
		a.logger.Warn("TELEGRAM_BOT_TOKEN is not set, replies cannot be delivered")
	}
	if cfg.Telegram.WebhookSecret == "" {
		a.logger.Warn("webhook secret is not set, any caller can post updates")
	}
	a.logger.Info("starting findorigin",
		zap.String("version", version),
		zap.String("mode", describeMode(cfg)),
		zap.Bool("search", cfg.Search.Enabled),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("miniapp", cfg.Server.MiniAppEnabled))

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		WebhookSecret:     cfg.Telegram.WebhookSecret,
		MaxBodyBytes:      cfg.Telegram.MaxBodyBytes,
		MiniAppEnabled:    cfg.Server.MiniAppEnabled,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		SendTimeout:       cfg.Telegram.RequestTimeout,
	}, a.pipeline, a.telegram, a.logger.Named("http"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.logger.Info("stopped")
	return nil
}

// applyCommonFlags copies pipeline flags shared by several commands into viper
func applyCommonFlags(cmd *cobra.Command) error {
	if f := cmd.Flags().Lookup("facts-only"); f != nil && f.Changed {
		on, err := cmd.Flags().GetBool("facts-only")
		if err != nil {
			return err
		}
		if on {
			viper.Set("analysis.mode", "facts")
		}
	}
	if f := cmd.Flags().Lookup("search"); f != nil && f.Changed {
		on, err := cmd.Flags().GetBool("search")
		if err != nil {
			return err
		}
		viper.Set("search.enabled", on)
	}
	return nil
}
