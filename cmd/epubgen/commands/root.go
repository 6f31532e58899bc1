// Package commands implements the CLI commands for epubgen.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "epubgen",
	Short: "Build ePub books from HTML chapters",
	Long: `Epubgen assembles HTML chapters, images, fonts and a cover into an
ePub 2 or ePub 3 book.

Describe the book in a YAML file, then build it:

Examples:
  # Build an ePub 3 book
  epubgen build book.yaml -o book.epub

  # Build an ePub 2 book with debug output
  epubgen build book.yaml -o book.epub --version 2 --verbose

  # Check the structure of a generated book
  epubgen verify book.epub`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.epubgen.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".epubgen")
		viper.SetConfigType("yaml")
	}

	// EPUBGEN_LANG, EPUBGEN_PUBLISHER, EPUBGEN_TEMP_DIR, ...
	viper.SetEnvPrefix("EPUBGEN")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger returns a text logger on stderr, at debug level when verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// logInfo prints an info message to stderr.
func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
