package logger

// ToolName prefixes every log file this tool writes.
const ToolName = "slimsweep"

// LogPrefixes returns the file name prefixes cleanup looks for.
func LogPrefixes() []string { return []string{ToolName} }

// PrimaryLogPrefix is the prefix new log files are created with.
func PrimaryLogPrefix() string { return ToolName }
