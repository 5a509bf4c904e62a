package commands

import (
	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/internal/app"
	"github.com/tbot223/tbotcore/internal/output"
	"github.com/tbot223/tbotcore/internal/store"
)

func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	cmd.AddCommand(newDBPathCmd())
	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBPurgeExpiredCmd())
	return cmd
}

func newDBPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the resolved database path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Path   string `json:"path"`
				Source string `json:"source"`
			}
			return output.PrintSuccess(resp{Path: path, Source: source})
		},
	}
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open the database and apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.InitDB()
			if err != nil {
				return cmdErr(err)
			}
			defer func() { _ = db.Close() }()

			current, latest, err := store.SchemaVersion(db)
			if err != nil {
				return cmdErr(err)
			}
			type resp struct {
				SchemaVersion int64 `json:"schema_version"`
				Latest        int64 `json:"latest"`
			}
			return output.PrintSuccess(resp{SchemaVersion: current, Latest: latest})
		},
	}
}

func newDBPurgeExpiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete expired shared variables from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.InitDB()
			if err != nil {
				return cmdErr(err)
			}
			defer func() { _ = db.Close() }()

			n, err := store.PurgeExpiredVars(cmdContext(cmd), db)
			if err != nil {
				return cmdErr(err)
			}
			type resp struct {
				Purged int64 `json:"purged"`
			}
			return output.PrintSuccess(resp{Purged: n})
		},
	}
}
