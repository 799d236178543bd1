package cmd

import (
	"github.com/spf13/cobra"

	"gooze.dev/pkg/poison/internal/domain"
	m "gooze.dev/pkg/poison/internal/model"
)

// importsCmd represents the imports command.
var importsCmd = newImportsCmd()

func newImportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "imports FILE",
		Short: "Show the imports of a file and where they resolve",
		Long: `List every import of FILE, in any scope, together with the source
directory it resolves to and how many of its files a check would scan.
Nothing is scanned for forbidden names.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			return workflow.Imports(ctx, domain.ImportsArgs{
				File:    m.Path(args[0]),
				Options: scanOptions(),
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(importsCmd)
}
