package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	epub "github.com/simp-lee/epubgen"
)

var buildCmd = &cobra.Command{
	Use:   "build <book.yaml>",
	Short: "Build an ePub from a book file",
	Long: `Build an ePub from a YAML book file.

Values missing from the book file fall back to the config file and
EPUBGEN_* environment variables (lang, publisher, version, temp_dir).

Example book file:
  title: My Book
  author: [Jane Doe, John Roe]
  cover: images/cover.jpg
  chapters:
    - title: Intro
      data: "<p>Hello</p>"
    - title: End
      file: chapters/end.html`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	flags := buildCmd.Flags()
	flags.StringP("output", "o", "", "output ePub path (default: <book>.epub)")
	flags.Int("version", 0, "ePub version: 2 or 3 (default 3)")
	flags.String("lang", "", "book language when the book file sets none")
	flags.String("publisher", "", "publisher when the book file sets none")
	flags.String("temp-dir", "", "parent directory for the staging tree")
	flags.Duration("timeout", 60*time.Second, "timeout for each remote image download")

	// Bind to viper
	_ = viper.BindPFlag("version", flags.Lookup("version"))
	_ = viper.BindPFlag("lang", flags.Lookup("lang"))
	_ = viper.BindPFlag("publisher", flags.Lookup("publisher"))
	_ = viper.BindPFlag("temp_dir", flags.Lookup("temp-dir"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(viper.GetBool("verbose"))

	opts, err := loadBook(args[0])
	if err != nil {
		return err
	}
	applyConfig(&opts)

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = trimExt(args[0]) + ".epub"
	}
	opts.Output = output
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	logger.Debug("building book", "book", args[0], "output", output, "chapters", len(opts.Content))

	err = epub.Generate(ctx, opts,
		epub.WithLogger(logger),
		epub.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		logger.Error("build failed", "error", err)
		return err
	}
	logInfo("wrote %s", output)
	return nil
}

// applyConfig fills fields the book file left empty from viper.
func applyConfig(opts *epub.Options) {
	if opts.Version == 0 {
		opts.Version = epub.Version(viper.GetInt("version"))
	}
	if opts.Lang == "" {
		opts.Lang = viper.GetString("lang")
	}
	if opts.Publisher == "" {
		opts.Publisher = viper.GetString("publisher")
	}
	if opts.TempDir == "" {
		opts.TempDir = viper.GetString("temp_dir")
	}
	opts.Verbose = viper.GetBool("verbose")
}

func trimExt(p string) string {
	return p[:len(p)-len(filepath.Ext(p))]
}
