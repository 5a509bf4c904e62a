package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/pkg/result"
)

func NewFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "File operations (atomic writes, listing, deletion)",
	}

	cmd.AddCommand(newFileWriteCmd())
	cmd.AddCommand(newFileReadCmd())
	cmd.AddCommand(newFileListCmd())
	cmd.AddCommand(newFileDeleteCmd())
	cmd.AddCommand(newFileMkdirCmd())
	cmd.AddCommand(newFileExistsCmd())
	return cmd
}

func newFileWriteCmd() *cobra.Command {
	var (
		path, text string
		fromStdin  bool
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Atomically write text to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStdin == cmd.Flags().Changed("text") {
				return cmdErr(fmt.Errorf("exactly one of --text or --stdin is required"))
			}
			data := []byte(text)
			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return cmdErr(fmt.Errorf("read stdin: %w", err))
				}
				data = b
			}
			return withToolkit(func(k *toolkit) error {
				return emit(k.files.AtomicWrite(path, data))
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Target file (required)")
	cmd.Flags().StringVar(&text, "text", "", "Content to write")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read content from stdin")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newFileReadCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a text file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				return emit(k.files.ReadText(path))
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "File to read (required)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newFileListCmd() *cobra.Command {
	var (
		dir       string
		exts      []string
		namesOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List regular files in a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				return emit(k.files.ListFiles(dir, exts, namesOnly))
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to list")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Only these extensions (e.g. .json,.yaml)")
	cmd.Flags().BoolVar(&namesOnly, "names", false, "Print file stems instead of paths")
	return cmd
}

func newFileDeleteCmd() *cobra.Command {
	var (
		path string
		dir  bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a file or directory tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				if dir {
					return emit(k.files.DeleteDirectory(path))
				}
				return emit(k.files.DeleteFile(path))
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "File or directory (required)")
	cmd.Flags().BoolVar(&dir, "dir", false, "Delete a directory recursively")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newFileMkdirCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "mkdir",
		Short: "Create a directory and its parents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				return emit(k.files.CreateDirectory(path))
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Directory to create (required)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newFileExistsCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether a path exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				return emit(k.files.Exists(path))
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Path to check (required)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func NewJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "json",
		Short: "JSON document helpers",
	}
	cmd.AddCommand(newJSONGetCmd())
	return cmd
}

func newJSONGetCmd() *cobra.Command {
	var path, key string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read a JSON file, optionally one dotted key of it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				var doc any
				r := k.files.ReadJSON(path, &doc)
				if !r.Success() {
					return emit(r)
				}
				if key == "" {
					return emit(result.OK(doc))
				}
				v, ok := lookupDotted(doc, key)
				if !ok {
					return cmdErr(fmt.Errorf("key %q not found in %s", key, path))
				}
				return emit(result.OK(v))
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "JSON file (required)")
	cmd.Flags().StringVar(&key, "key", "", "Dotted key path (e.g. server.port)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func lookupDotted(doc any, key string) (any, bool) {
	cur := doc
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
