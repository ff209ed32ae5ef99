// impactscan estimates the impact of the alphanumeric CNPJ change on a
// Caché/MUMPS code base from a term search transcript.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phobologic/impactscan/internal/config"
	"github.com/phobologic/impactscan/internal/logging"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries what every subcommand shares: output streams, the loaded
// configuration and the logger.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zap.NewNop()}
	var af analyzeFlags

	root := &cobra.Command{
		Use:   "impactscan",
		Short: "Classify CNPJ term hits in a search transcript and price the migration",
		Long: `impactscan reads a term table and a search transcript in the
"<file>(<line>): <code>" form, classifies every hit as critical, discarded
or needing manual review, and writes the result tables and an effort
estimate. Running it without a subcommand is the same as "impactscan analyze".`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.log.Sync() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAnalyze(cmd, &af)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("impactscan {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default ./"+config.DefaultFile+" when present)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	af.register(root.Flags())

	root.AddCommand(
		newAnalyzeCmd(a),
		newScanCmd(a),
		newClassifyCmd(a),
		newRunsCmd(a),
		newInitCmd(a),
	)
	return root
}

// setup loads .env, the config file and the environment, then builds the logger.
// Flags are applied by each command on top of the result.
func (a *app) setup(*cobra.Command, []string) error {
	_ = godotenv.Load()

	path, required := a.configPath, true
	if path == "" {
		path, required = config.DefaultFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logging.New(a.stderr, logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: a.verbose,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.log = log
	return nil
}

// validate checks the configuration once flags have been applied.
func (a *app) validate() error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
