package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/pkg/result"
	"github.com/tbot223/tbotcore/pkg/utils"
)

func algorithmUsage() string {
	return "Hash algorithm: " + strings.Join(utils.Algorithms(), "|")
}

func NewHashCmd() *cobra.Command {
	var (
		text, path, algorithm string
	)
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hex digest of text or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (text == "") == (path == "") {
				return cmdErr(fmt.Errorf("exactly one of --text or --file is required"))
			}
			return withToolkit(func(k *toolkit) error {
				data := []byte(text)
				if path != "" {
					r := k.files.ReadFile(path)
					if !r.Success() {
						return emit(r)
					}
					data, _ = result.DataAs[[]byte](r)
				}
				return emit(k.utils.Hash(data, algorithm))
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Text to hash")
	cmd.Flags().StringVar(&path, "file", "", "File to hash")
	cmd.Flags().StringVar(&algorithm, "algo", "sha256", algorithmUsage())
	return cmd
}

func NewPBKDF2Cmd() *cobra.Command {
	var (
		password, algorithm  string
		saltSize, iterations int
	)
	cmd := &cobra.Command{
		Use:   "pbkdf2",
		Short: "Derive a salted PBKDF2 hash of a password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				return emit(k.utils.PBKDF2(password, algorithm, saltSize, iterations))
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password to hash (required)")
	cmd.Flags().StringVar(&algorithm, "algo", "sha256", algorithmUsage())
	cmd.Flags().IntVar(&saltSize, "salt-size", 16, "Salt length in bytes")
	cmd.Flags().IntVar(&iterations, "iterations", 100000, "PBKDF2 iteration count")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func NewPBKDF2VerifyCmd() *cobra.Command {
	var (
		password, saltHex, hashHex, algorithm string
		iterations                            int
	)
	cmd := &cobra.Command{
		Use:   "pbkdf2-verify",
		Short: "Check a password against a PBKDF2 hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				return emit(k.utils.VerifyPBKDF2(password, saltHex, hashHex, algorithm, iterations))
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password to check (required)")
	cmd.Flags().StringVar(&saltHex, "salt", "", "Hex salt from pbkdf2 (required)")
	cmd.Flags().StringVar(&hashHex, "hash", "", "Hex hash from pbkdf2 (required)")
	cmd.Flags().StringVar(&algorithm, "algo", "sha256", algorithmUsage())
	cmd.Flags().IntVar(&iterations, "iterations", 100000, "PBKDF2 iteration count")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("salt")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}
