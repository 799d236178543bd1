package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/poison/internal/domain"
	m "gooze.dev/pkg/poison/internal/model"
)

var auditParallelFlag int

// auditCmd represents the audit command.
var auditCmd = newAuditCmd()

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "audit [paths...]",
		Short:        "Check every source file under the given paths",
		Long:         auditLongDescription,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			paths := parsePaths(args)
			if len(paths) == 0 {
				paths = []m.Path{"./..."}
			}

			return workflow.Audit(ctx, domain.AuditArgs{
				Paths:   paths,
				Exclude: viper.GetStringSlice(excludeConfigKey),
				Names:   viper.GetStringSlice(forbiddenConfigKey),
				Options: scanOptions(),
				Reports: m.Path(viper.GetString(outputFlagName)),
				Threads: viper.GetInt(auditParallelConfigKey),
			})
		},
	}

	configureAuditFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func configureAuditFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&auditParallelFlag, auditParallelFlagName, "p", defaultAuditParallel, "number of targets checked in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(auditParallelFlagName), auditParallelConfigKey)
}
