package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/poison/internal/domain"
	m "gooze.dev/pkg/poison/internal/model"
)

var checkWatchFlag bool
var checkDebounceFlag int

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "check FILE [NAME...]",
		Short:        "Check a file and its transitive imports for forbidden names",
		Long:         checkLongDescription,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			checkArgs := domain.CheckArgs{
				File:    m.Path(args[0]),
				Names:   checkNames(args[1:]),
				Options: scanOptions(),
				Reports: m.Path(viper.GetString(outputFlagName)),
			}

			if checkWatchFlag {
				return workflow.Watch(ctx, domain.WatchArgs{
					CheckArgs: checkArgs,
					Debounce:  time.Duration(viper.GetInt(watchDebounceConfigKey)) * time.Millisecond,
				})
			}

			return workflow.Check(ctx, checkArgs)
		},
	}

	configureCheckFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func configureCheckFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&checkWatchFlag, watchFlagName, "w", false, "re-run the check whenever a scanned file changes")
	cmd.Flags().IntVar(&checkDebounceFlag, debounceFlagName, defaultWatchDebounceMS, "milliseconds to wait for changes to settle in watch mode")
	bindFlagToConfig(cmd.Flags().Lookup(debounceFlagName), watchDebounceConfigKey)
}

// checkNames merges configured and positional names, keeping the first occurrence of each.
func checkNames(positional []string) []string {
	configured := viper.GetStringSlice(forbiddenConfigKey)
	names := make([]string, 0, len(configured)+len(positional))
	seen := make(map[string]struct{}, cap(names))

	for _, name := range append(configured, positional...) {
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names
}
