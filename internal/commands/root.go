package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/internal/app"
	"github.com/tbot223/tbotcore/internal/output"
)

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "tbotcore",
		Short:         "Result-based utility toolkit: shared variables, files, hashing, process pools",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire --db-path into app-level resolver.
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}
			return nil
		},
	}

	root.PersistentFlags().String("db-path", "", "Override database path")
	root.Flags().BoolP("version", "v", false, "version for tbotcore")

	root.AddCommand(NewVarsCmd())
	root.AddCommand(NewFileCmd())
	root.AddCommand(NewJSONCmd())
	root.AddCommand(NewHashCmd())
	root.AddCommand(NewPBKDF2Cmd())
	root.AddCommand(NewPBKDF2VerifyCmd())
	root.AddCommand(NewTextCmd())
	root.AddCommand(NewRunCmd())
	root.AddCommand(NewDBCmd())
	root.AddCommand(NewSchemaCmd(root))
	return root
}

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	err := NewRootCmd(version).Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}
