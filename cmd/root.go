// Package cmd provides the root command and CLI setup for poison.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gooze.dev/pkg/poison"
	"gooze.dev/pkg/poison/internal/adapter"
	"gooze.dev/pkg/poison/internal/controller"
	"gooze.dev/pkg/poison/internal/domain"
	m "gooze.dev/pkg/poison/internal/model"
)

var goFileAdapter adapter.GoFileAdapter
var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var importResolver adapter.ImportResolver
var fileWatcher adapter.FileWatcher
var contextResolver domain.ContextResolver
var nameScanner domain.NameScanner
var importExtractor domain.ImportExtractor
var orchestrator domain.Orchestrator
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

// forbiddenNames are added to the names given as positional arguments.
var forbiddenNames []string

var noRecursiveFlag bool
var ignoreInstalledFlag bool
var stdlibRootFlag string
var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewReportStore()
	importResolver = adapter.NewLocalImportResolver(fsAdapter)
	fileWatcher = adapter.NewFSNotifyWatcher()
	contextResolver = domain.NewContextResolver(fsAdapter, adapter.NewRuntimeFrameSource(), domain.DefaultIgnoreList(poison.ImportPath))
	nameScanner = domain.NewNameScanner(fsAdapter, goFileAdapter)
	importExtractor = domain.NewImportExtractor(fsAdapter, goFileAdapter)
	orchestrator = domain.NewOrchestrator(contextResolver, nameScanner, importExtractor, importResolver, ui)
	workflow = domain.NewWorkflow(
		fsAdapter,
		reportStore,
		ui,
		orchestrator,
		importExtractor,
		importResolver,
		fileWatcher,
	)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...          recursively scan current directory
  - ./pkg/...      recursively scan pkg directory
  - ./cmd ./pkg    scan multiple directories`

const rootLongDescription = `Poison checks Go source files for forbidden identifiers. A file is
scanned token by token, then every package it imports is resolved to its
source files and scanned the same way, transitively, until the first
forbidden name is found or the import graph is exhausted.

` + pathPatternsHelp

const checkLongDescription = `Check FILE and everything it imports for the given names.

Names may be given as arguments after FILE, with --forbid, or through the
scan.forbidden configuration key. Anything that is not a valid Go identifier
is ignored. The command fails on the first forbidden name found.`

const auditLongDescription = `Check every non-test Go source file under the given paths as an
independent target (default: current module).

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

// newRootCmd returns a fully configured root command without subcommands.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poison",
		Short: "Transitive forbidden-identifier scanner for Go",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			defaultReportsDir,
			"output directory for scan reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", nil, "exclude files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&forbiddenNames, forbidFlagName, "f", nil, "forbidden identifier (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(forbidFlagName), forbiddenConfigKey)

	cmd.PersistentFlags().BoolVar(&noRecursiveFlag, noRecursiveFlagName, false, "scan only the target file, not what it imports")

	cmd.PersistentFlags().BoolVar(&ignoreInstalledFlag, ignoreInstalledFlagName, defaultIgnoreInstalled, "skip files under the standard library root")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(ignoreInstalledFlagName), ignoreInstalledConfigKey)

	cmd.PersistentFlags().StringVar(&stdlibRootFlag, stdlibRootFlagName, defaultStdlibRoot(), "standard library source root")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(stdlibRootFlagName), stdlibRootConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, "", "log file (default from log.filename)")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process status: poisoned targets exit
// with 1, anything that kept a check from completing with 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrViolation):
		return exitPoisoned
	default:
		return exitFailure
	}
}

// scanOptions builds traversal options from flags and configuration. Imports
// of the poison library itself are never followed.
func scanOptions() domain.Options {
	return domain.Options{
		Recursive:       viper.GetBool(recursiveConfigKey) && !noRecursiveFlag,
		IgnoreInstalled: viper.GetBool(ignoreInstalledConfigKey),
		StdlibRoot:      m.Path(viper.GetString(stdlibRootConfigKey)),
		SelfImports:     []string{poison.ImportPath},
	}
}

// signalContext is cancelled on interrupt so long traversals and watch loops stop cleanly.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
