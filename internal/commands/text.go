package commands

import (
	"github.com/spf13/cobra"
)

func NewTextCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "text <key>",
		Short: "Look up localized text from the languages directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(k *toolkit) error {
				core, err := k.appCore()
				if err != nil {
					return cmdErr(err)
				}
				return emit(core.TextByLang(args[0], lang))
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language code (default: default_lang from config)")
	return cmd
}
