package commands

// History listing defaults
const (
	DefaultHistoryLimit       = 20
	DefaultHistorySearchLimit = 50
	MaxHistoryAnalysisRecords = 500
	TopPluginCount            = 5
	TimestampFormat           = "2006-01-02 15:04:05"
	HistoryIDWidth            = 8
)

// Error messages
const (
	ErrConfigStoreUnavailable   = "config store unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrHistoryIDRequired        = "history entry id required"
	ErrKeyRequired              = "--key is required"
	ErrQueryRequired            = "--query required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoModelsEnabled          = "No models enabled. Run `dexter setup` to build a fallback chain."
	MsgSetupAborted             = "Setup cancelled, configuration unchanged."
)
