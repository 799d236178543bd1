package cmd

import (
	"errors"
	"fmt"
	"go/build"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "poison"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName          = "output"
	excludeFlagName         = "exclude"
	forbidFlagName          = "forbid"
	noRecursiveFlagName     = "no-recursive"
	ignoreInstalledFlagName = "ignore-installed"
	stdlibRootFlagName      = "stdlib-root"
	auditParallelFlagName   = "parallel"
	watchFlagName           = "watch"
	debounceFlagName        = "debounce"
	verboseFlagName         = "verbose"
	logFileFlagName         = "log-file"

	forbiddenConfigKey       = "scan.forbidden"
	recursiveConfigKey       = "scan.recursive"
	ignoreInstalledConfigKey = "scan.ignore_installed"
	stdlibRootConfigKey      = "scan.stdlib_root"
	auditParallelConfigKey   = "audit.parallel"
	excludeConfigKey         = "paths.exclude"
	watchDebounceConfigKey   = "watch.debounce_ms"

	defaultReportsDir      = ".poison-reports"
	defaultRecursive       = true
	defaultIgnoreInstalled = true
	defaultAuditParallel   = 1
	defaultWatchDebounceMS = 300

	envPrefix = "POISON"

	// Process exit statuses.
	exitPoisoned = 1
	exitFailure  = 2

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".poison.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(forbiddenConfigKey, []string{})
	viper.SetDefault(recursiveConfigKey, defaultRecursive)
	viper.SetDefault(ignoreInstalledConfigKey, defaultIgnoreInstalled)
	viper.SetDefault(stdlibRootConfigKey, defaultStdlibRoot())
	viper.SetDefault(auditParallelConfigKey, defaultAuditParallel)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(watchDebounceConfigKey, defaultWatchDebounceMS)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil && !configMissing(err) {
		fmt.Fprintf(os.Stderr, "poison: ignoring %s: %v\n", viper.ConfigFileUsed(), err)
	}
}

// configMissing reports whether err only says there is no config file.
func configMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError

	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// defaultStdlibRoot returns GOROOT/src of the default build context.
func defaultStdlibRoot() string {
	if build.Default.GOROOT == "" {
		return ""
	}

	return filepath.Join(build.Default.GOROOT, "src")
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
