package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X ...cli.version=..."
var version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "findorigin",
	Short: "FindOrigin - trace where a message or Telegram post came from",
	Long: `FindOrigin is a Telegram bot and mini-app backend that looks for the
origin of forwarded text.

It extracts lightweight facts (claims, dates, numbers, names, links) from a
message or a public Telegram post, optionally searches the web, and asks a
language model for a short summary with up to three candidate sources.

Candidate sources are limited to links found in the text or in search
results. FindOrigin does not judge whether a claim is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "findorigin %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.findorigin/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env, then the config file, on top of env and defaults
func initConfig() {
	// .env never overrides variables that are already set
	if err := godotenv.Load(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".findorigin"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	configureViper(viper.GetViper())
	if verbose {
		viper.Set("logging.level", "debug")
	}

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		}
		return
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
