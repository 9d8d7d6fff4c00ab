package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "testbench"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName    = "output"
	verboseFlagName   = "verbose"
	logFileFlagName   = "log-file"
	sourceDirFlagName = "source-dir"
	sourceURLFlagName = "source-url"
	sourceKeyFlagName = "source-key"
	parallelFlagName  = "parallel"
	targetFlagName    = "target"
	reloadFlagName    = "reload"
	pruneFlagName     = "prune"
	spillDirFlagName  = "spill-dir"
	timeoutFlagName   = "timeout"
	runIDFlagName     = "run"
	addrFlagName      = "addr"

	programsKey       = "programs"
	sourceDirKey      = "source.dir"
	sourceURLKey      = "source.url"
	sourceKeyKey      = "source.key"
	runParallelKey    = "run.parallel"
	runReloadKey      = "run.reload"
	runPruneKey       = "run.prune"
	runTargetsKey     = "run.targets"
	runSpillDirKey    = "run.spill_dir"
	runTimeoutKey     = "run.timeout"
	hostPrefixesKey   = "loader.host_prefixes"
	remotePrefixesKey = "loader.remote_prefixes"
	serveAddrKey      = "serve.addr"

	defaultOutput      = ".testbench.db"
	defaultProgramsDir = "programs"
	defaultSourceDir   = "units"
	defaultRunParallel = 1
	defaultRunTimeout  = 10 * time.Second
	defaultServeAddr   = "127.0.0.1:8787"

	envPrefix = "TESTBENCH"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".testbench.log"
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
	viper.SetDefault(outputFlagName, defaultOutput)
	viper.SetDefault(programsKey, []string{defaultProgramsDir})
	viper.SetDefault(sourceDirKey, defaultSourceDir)
	viper.SetDefault(sourceURLKey, "")
	viper.SetDefault(sourceKeyKey, "")
	viper.SetDefault(runParallelKey, defaultRunParallel)
	viper.SetDefault(runReloadKey, false)
	viper.SetDefault(runPruneKey, false)
	viper.SetDefault(runTargetsKey, []string{})
	viper.SetDefault(runSpillDirKey, "")
	viper.SetDefault(runTimeoutKey, defaultRunTimeout)
	viper.SetDefault(hostPrefixesKey, []string{})
	viper.SetDefault(remotePrefixesKey, []string{})
	viper.SetDefault(serveAddrKey, defaultServeAddr)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		slog.Warn("Failed to read config file", "file", viper.ConfigFileUsed(), "error", err)
	}
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

	// numeric slog levels, e.g. -4 for debug
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger installs a rotating file logger as the slog default.
//
// It logs at the configured level, or at Debug when verbose is true.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
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
