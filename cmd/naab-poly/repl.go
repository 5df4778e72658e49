package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/naab-lang/naab/executor"
	"github.com/naab-lang/naab/value"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive block-at-a-time REPL",
	Long: `Start an interactive REPL. Each entered line runs as one block in the
chosen language; the block's result prints after it settles.

Features:
  - Command history (up/down arrows)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)
  - Switch language with :lang <tag>

Blocks do not share state: bind what you need with --arg on the run
command instead, or keep state in the host. Type 'exit' or 'quit' to end
the session, or press Ctrl+D.`,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().Duration("timeout", 30*time.Second, "Execution deadline per block")
	replCmd.Flags().String("history", "", "History file path (default: ~/.naab_poly_history)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	langFlag, _ := cmd.Flags().GetString("lang")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	historyFile, _ := cmd.Flags().GetString("history")

	lang, err := detectLanguage(langFlag, "")
	if err != nil {
		return err
	}
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".naab_poly_history")
	}

	engine, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	if !engine.Supported(lang) {
		return fmt.Errorf("unknown language %q: one of %s", lang, strings.Join(engine.Languages(), ", "))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(os.Stderr, "naab-poly %s REPL (type 'exit' to quit, Ctrl+D to exit)\n", lang)

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(">>> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == ":lang" || strings.HasPrefix(line, ":lang ") {
			tag := strings.TrimSpace(strings.TrimPrefix(line, ":lang"))
			switch {
			case tag == "":
				fmt.Println(lang)
			case engine.Supported(tag):
				lang = tag
			default:
				fmt.Fprintf(os.Stderr, "unknown language %q: one of %s\n", tag, strings.Join(engine.Languages(), ", "))
			}
			continue
		}

		block := value.NewBlock(lang, line, nil)
		result, err := engine.Run(block, nil, executor.SpawnTimeout(timeout))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printResult(os.Stdout, result)
	}
}
