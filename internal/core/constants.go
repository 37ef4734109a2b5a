package core

// Log levels
const (
	LogDebug = "debug"
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)

// LogLevels is the ordered list of log levels.
var LogLevels = []string{LogDebug, LogInfo, LogWarn, LogError}

// Log formats
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogFormats is the ordered list of log formats.
var LogFormats = []string{LogFormatAuto, LogFormatText, LogFormatJSON}

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
	StoreBackendHTTP   = "http"
)

// StoreBackends is the ordered list of settings store backends.
var StoreBackends = []string{StoreBackendMemory, StoreBackendFile, StoreBackendSQLite, StoreBackendHTTP}

// Merge strategies
const (
	MergeStrategyMerge  = "merge"
	MergeStrategyRebase = "rebase"
	MergeStrategySquash = "squash"
)

// MergeStrategies is the ordered list of merge strategies.
var MergeStrategies = []string{MergeStrategyMerge, MergeStrategyRebase, MergeStrategySquash}

// Orchestrator bounds.
const (
	MinConcurrentAgents = 1
	MaxConcurrentAgents = 20
	MinSpawnInterval    = 10
	MaxSpawnInterval    = 600
)

// IsValidMergeStrategy checks if the given merge strategy is supported.
func IsValidMergeStrategy(s string) bool {
	return contains(MergeStrategies, s)
}

// IsValidStoreBackend checks if the given store backend is supported.
func IsValidStoreBackend(s string) bool {
	return contains(StoreBackends, s)
}

// IsValidLogLevel checks if the given log level is supported.
func IsValidLogLevel(s string) bool {
	return contains(LogLevels, s)
}

// IsValidLogFormat checks if the given log format is supported.
func IsValidLogFormat(s string) bool {
	return contains(LogFormats, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
