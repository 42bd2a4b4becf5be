package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/telegram"
)

const webhookPath = "/api/webhook"

var dropPending bool

// webhookCmd represents the webhook command
var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration",
	Long: `Register, remove or inspect the URL Telegram delivers updates to.

The bot token is read from TELEGRAM_BOT_TOKEN (or telegram.bot_token), and the
secret token from TELEGRAM_WEBHOOK_SECRET (or telegram.webhook_secret).`,
}

var webhookSetCmd = &cobra.Command{
	Use:   "set <public-url>",
	Short: "Register the webhook URL",
	Long: `Set registers the public URL of the server with Telegram. A bare origin
such as https://bot.example.com gets /api/webhook appended.

Example:
  findorigin webhook set https://bot.example.com
  findorigin webhook set https://bot.example.com/api/webhook --drop-pending`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := webhookURL(args[0])
		if err != nil {
			return err
		}
		return withTelegram(cmd, func(ctx context.Context, cfg *model.Config, client *telegram.Client) error {
			if err := client.SetWebhook(ctx, target, cfg.Telegram.WebhookSecret, dropPending); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Webhook set: %s\n", target)
			if cfg.Telegram.WebhookSecret == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "  Warning: no secret token configured (TELEGRAM_WEBHOOK_SECRET)")
			}
			return nil
		})
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTelegram(cmd, func(ctx context.Context, cfg *model.Config, client *telegram.Client) error {
			if err := client.DeleteWebhook(ctx, dropPending); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Webhook deleted")
			return nil
		})
	},
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTelegram(cmd, func(ctx context.Context, cfg *model.Config, client *telegram.Client) error {
			info, err := client.GetWebhookInfo(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			current := info.URL
			if current == "" {
				current = "(not set)"
			}
			fmt.Fprintf(out, "  URL:              %s\n", current)
			fmt.Fprintf(out, "  Pending updates:  %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				at := time.Unix(info.LastErrorDate, 0).UTC().Format(time.RFC3339)
				fmt.Fprintf(out, "  Last error:       %s (%s)\n", info.LastErrorMessage, at)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(webhookCmd)
	webhookCmd.AddCommand(webhookSetCmd)
	webhookCmd.AddCommand(webhookDeleteCmd)
	webhookCmd.AddCommand(webhookInfoCmd)

	webhookSetCmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued while no webhook was set")
	webhookDeleteCmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop queued updates")
}

// withTelegram loads the config and runs fn with a Bot API client
func withTelegram(cmd *cobra.Command, fn func(ctx context.Context, cfg *model.Config, client *telegram.Client) error) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Telegram.RequestTimeout)
	defer cancel()
	return fn(ctx, cfg, newTelegramClient(cfg))
}

// webhookURL validates raw and appends the webhook path to a bare origin
func webhookURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("webhook URL must use https, got %q", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("webhook URL has no host: %q", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = webhookPath
	}
	return u.String(), nil
}
