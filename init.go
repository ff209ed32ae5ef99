package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/impactscan/internal/config"
	"github.com/phobologic/impactscan/internal/report"
	"github.com/phobologic/impactscan/internal/textenc"
)

const configHeader = `# impactscan configuration.
#
# Precedence: built-in defaults < this file < IMPACTSCAN_* environment
# variables (a .env file is read when present) < command-line flags.
#
# output.formats: %s
# input.encoding: %s
# effort.categories keys: validacao, logica_negocio, estrutura_dados,
#   integracao_externa, formatacao, chamada_subrotina, revisao_manual
`

// newInitCmd writes a default configuration file. It does not read the
// existing configuration, so it also works when that file is broken.
func newInitCmd(a *app) *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultFile,
		Long: `Write the built-in configuration, with comments, to path (default
./` + config.DefaultFile + `). An existing file is kept unless --force is given.`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(_ *cobra.Command, args []string) error {
			content, err := renderConfig(config.DefaultConfig())
			if err != nil {
				return err
			}
			if dryRun {
				_, _ = fmt.Fprint(a.stdout, content)
				return nil
			}

			path := config.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("checking %s: %w", path, err)
				}
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote default configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the configuration instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// renderConfig returns cfg as commented YAML. It is a pure function for easy testing.
func renderConfig(cfg *config.Config) (string, error) {
	body, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding configuration: %w", err)
	}
	header := fmt.Sprintf(configHeader,
		strings.Join(report.Formats, ", "),
		strings.Join(textenc.Names, ", "))
	return header + "\n" + string(body), nil
}
