package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/naab-lang/naab/executor"
	"github.com/naab-lang/naab/ffi"
	"github.com/naab-lang/naab/marshal"
	"github.com/naab-lang/naab/value"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run one block and print its result",
	Long: `Execute a single polyglot block.

The block can be provided via:
  - File argument: naab-poly run script.py
  - Inline flag: naab-poly run -l python -c '1 + 1'
  - Stdin: echo '1 + 1' | naab-poly run -l python

Bound variables are passed with --arg name=json:
  naab-poly run -l python -c 'n * 2' --arg n=21`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Block source to execute")
	cmd.Flags().Duration("timeout", 30*time.Second, "Execution deadline for the block")
	cmd.Flags().StringArray("arg", nil, "Bound variable as name=json (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("code")
	langFlag, _ := cmd.Flags().GetString("lang")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	argSpecs, _ := cmd.Flags().GetStringArray("arg")

	var source, filename string
	switch {
	case code != "":
		source = code
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		source = string(data)
	default:
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return cmd.Help()
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		source = string(data)
		if source == "" {
			return cmd.Help()
		}
	}

	lang, err := detectLanguage(langFlag, filename)
	if err != nil {
		return err
	}

	bound, values, err := parseArgs(argSpecs)
	if err != nil {
		return err
	}

	engine, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer engine.Close()

	block := value.NewBlock(lang, source, bound)
	result, err := engine.Run(block, values, executor.SpawnTimeout(timeout))
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

// parseArgs turns name=json specs into sorted bound names and values so the
// binding order is stable regardless of flag order.
func parseArgs(specs []string) ([]string, []value.Value, error) {
	if len(specs) == 0 {
		return nil, nil, nil
	}

	m := marshal.New(ffi.DefaultLimits())
	byName := make(map[string]value.Value, len(specs))
	for _, spec := range specs {
		name, raw, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("invalid arg spec %q (expected name=json)", spec)
		}
		f, err := marshal.DecodeJSON([]byte(raw))
		if err != nil {
			// Bare words are a common shorthand for strings.
			f = raw
		}
		v, err := m.FromForeign(f, "host")
		if err != nil {
			return nil, nil, fmt.Errorf("arg %s: %w", name, err)
		}
		byName[name] = v
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]value.Value, len(names))
	for i, name := range names {
		values[i] = byName[name]
	}
	return names, values, nil
}

func printResult(w io.Writer, v value.Value) {
	if v.IsNull() {
		return
	}
	fmt.Fprintln(w, v.String())
}
