package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/internal/app"
	"github.com/tbot223/tbotcore/internal/store"
	"github.com/tbot223/tbotcore/pkg/globalvars"
)

func NewVarsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Shared global variables (sqlite or redis backed)",
	}

	cmd.AddCommand(newVarsSetCmd())
	cmd.AddCommand(newVarsGetCmd())
	cmd.AddCommand(newVarsDeleteCmd())
	cmd.AddCommand(newVarsExistsCmd())
	cmd.AddCommand(newVarsListCmd())
	cmd.AddCommand(newVarsClearCmd())
	return cmd
}

// openStore connects the configured backend and loads its current state.
func openStore(ctx context.Context, k *toolkit) (*globalvars.Store, func(), error) {
	var (
		backend globalvars.Backend
		closeFn func()
	)
	switch k.rt.StoreBackend {
	case app.BackendRedis:
		client, err := globalvars.DialRedis(ctx, k.rt.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rb, err := globalvars.NewRedisBackend(client, k.rt.RedisNamespace)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		backend = rb
		closeFn = func() { _ = client.Close() }
	default:
		db, err := store.InitDB()
		if err != nil {
			return nil, nil, err
		}
		backend = globalvars.NewSQLiteBackend(db)
		closeFn = func() { _ = db.Close() }
	}

	s := globalvars.New(
		globalvars.WithBackend(backend),
		globalvars.WithLog(k.log),
		globalvars.WithTracker(k.tracker),
	)
	if r := s.Sync(ctx); !r.Success() {
		closeFn()
		text, _ := r.Err()
		return nil, nil, fmt.Errorf("sync %s backend: %s", k.rt.StoreBackend, text)
	}
	return s, closeFn, nil
}

func withStore(cmd *cobra.Command, fn func(s *globalvars.Store) error) error {
	return withToolkit(func(k *toolkit) error {
		s, closeStore, err := openStore(cmdContext(cmd), k)
		if err != nil {
			return cmdErr(err)
		}
		defer closeStore()
		return fn(s)
	})
}

// parseVarValue decodes raw as JSON when asJSON is set, otherwise keeps it as
// a string.
func parseVarValue(raw string, asJSON bool) (any, error) {
	if !asJSON {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("--value is not valid JSON: %w", err)
	}
	return v, nil
}

func newVarsSetCmd() *cobra.Command {
	var (
		key, value string
		asJSON     bool
		overwrite  bool
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a variable",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVarValue(value, asJSON)
			if err != nil {
				return cmdErr(err)
			}
			if ttl < 0 {
				return cmdErr(fmt.Errorf("--ttl must not be negative"))
			}
			return withStore(cmd, func(s *globalvars.Store) error {
				return emit(s.Set(key, v, globalvars.WithOverwrite(overwrite), globalvars.WithTTL(ttl)))
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Variable key (required)")
	cmd.Flags().StringVar(&value, "value", "", "Variable value (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Decode --value as JSON")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing value")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Expire the value after this duration (e.g. 10m)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newVarsGetCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a variable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *globalvars.Store) error {
				return emit(s.Get(key))
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Variable key (required)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVarsDeleteCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a variable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *globalvars.Store) error {
				return emit(s.Delete(key))
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Variable key (required)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVarsExistsCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether a variable is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *globalvars.Store) error {
				return emit(s.Exists(key))
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Variable key (required)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVarsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List variable keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *globalvars.Store) error {
				return emit(s.ListKeys())
			})
		},
	}
}

func newVarsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every variable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *globalvars.Store) error {
				return emit(s.Clear())
			})
		},
	}
}
