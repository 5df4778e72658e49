package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	naab "github.com/naab-lang/naab"
	"github.com/naab-lang/naab/executor"
)

var rootCmd = &cobra.Command{
	Use:   "naab-poly [file]",
	Short: "Run polyglot code blocks from the command line",
	Long: `naab-poly - Execute python, javascript, and shell blocks through the
NAAb polyglot execution core.

Blocks can come from a file, an inline string, or stdin. Arguments are
bound by name with --arg and travel across the language boundary as
validated JSON values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun, // default to run behavior
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("lang", "l", "", "Language: python, javascript, shell (default: detect from file extension)")
	rootCmd.PersistentFlags().StringSlice("runner", nil, "Extra language as tag=template, template containing {} (repeatable)")
	rootCmd.PersistentFlags().Int64("max-workers", 0, "Bound concurrently running blocks (0 = unbounded)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log scheduler activity")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	addRunFlags(rootCmd)
}

// newEngine builds an engine from the persistent flags.
func newEngine(cmd *cobra.Command) (*naab.Engine, error) {
	runners, _ := cmd.Flags().GetStringSlice("runner")
	maxWorkers, _ := cmd.Flags().GetInt64("max-workers")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []naab.Option{naab.WithLogger(logger)}
	if maxWorkers > 0 {
		opts = append(opts, naab.WithMaxWorkers(maxWorkers))
	}
	for _, spec := range runners {
		tag, template, ok := strings.Cut(spec, "=")
		if !ok || tag == "" || !strings.Contains(template, "{}") {
			return nil, fmt.Errorf("invalid runner spec %q (expected tag=template with {})", spec)
		}
		opts = append(opts, naab.WithLanguage(tag, template, "", executor.Parallel))
	}
	return naab.New(opts...)
}

// detectLanguage resolves the language tag from the flag or file extension.
func detectLanguage(langFlag, filename string) (string, error) {
	if langFlag != "" {
		switch langFlag {
		case "py":
			return "python", nil
		case "js":
			return "javascript", nil
		case "sh":
			return "shell", nil
		}
		return langFlag, nil
	}
	if filename != "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".py":
			return "python", nil
		case ".js", ".mjs":
			return "javascript", nil
		case ".sh":
			return "shell", nil
		}
	}
	return "", fmt.Errorf("language required: use --lang python, javascript, or shell")
}
