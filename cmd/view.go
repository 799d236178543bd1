package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gooze.dev/pkg/poison/internal/domain"
	m "gooze.dev/pkg/poison/internal/model"
)

const onlyFlagName = "only"

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "view [DIR]",
		Short: "View previously saved scan reports",
		Long: `View the reports saved by the last check or audit. DIR defaults to the
--output directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(only)
			if err != nil {
				return err
			}

			reportsPath := m.Path(viper.GetString(outputFlagName))
			if len(args) == 1 {
				reportsPath = m.Path(args[0])
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			return workflow.View(ctx, domain.ViewArgs{Reports: reportsPath, Only: status})
		},
	}

	cmd.Flags().StringVar(&only, onlyFlagName, "", "show only reports with this status (clean, violation, error)")

	return cmd
}

func parseStatus(value string) (m.Status, error) {
	switch status := m.Status(value); status {
	case "", m.StatusClean, m.StatusViolation, m.StatusError:
		return status, nil
	default:
		return "", fmt.Errorf("unknown status %q: want clean, violation or error", value)
	}
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
