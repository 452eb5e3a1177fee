package logger

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxErrorEntries = 100
	timeFormat      = "2006-01-02 15:04:05.000"
	// A pid log older than this whose process start time is unknown is
	// assumed to belong to a recycled pid.
	staleLogAge = 7 * 24 * time.Hour
)

// cleanupOps are the filesystem and process calls made by CleanupOldLogs.
type cleanupOps struct {
	glob    func(pattern string) ([]string, error)
	lstat   func(path string) (os.FileInfo, error)
	resolve func(path string) (string, error)
	remove  func(path string) error
	inspect func(pid int) procState
}

var ops = cleanupOps{
	glob:    filepath.Glob,
	lstat:   os.Lstat,
	resolve: filepath.EvalSymlinks,
	remove:  os.Remove,
	inspect: inspectProcess,
}

// Logger writes leveled lines to a per-process file under os.TempDir and
// keeps the most recent warnings and errors in memory for failure reports.
type Logger struct {
	path string
	file *os.File
	buf  *bufio.Writer

	mu     sync.Mutex
	zl     atomic.Pointer[zerolog.Logger]
	closed atomic.Bool
	once   sync.Once

	errMu        sync.Mutex
	errorEntries []string
}

// CleanupStats summarizes one CleanupOldLogs pass.
type CleanupStats struct {
	Scanned      int
	Deleted      int
	Kept         int
	Errors       int
	DeletedFiles []string
	KeptFiles    []string
}

type lockedWriter struct{ l *Logger }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	if w.l.closed.Load() {
		return len(p), nil
	}
	return w.l.buf.Write(p)
}

// NewLogger creates <prefix>-<pid>.log in the temp directory.
func NewLogger() (*Logger, error) {
	return NewLoggerWithSuffix("")
}

// NewLoggerWithSuffix creates <prefix>-<pid>-<suffix>.log so concurrent
// loggers of one process do not share a file.
func NewLoggerWithSuffix(suffix string) (*Logger, error) {
	name := fmt.Sprintf("%s-%d", PrimaryLogPrefix(), os.Getpid())
	if s := sanitizeLogSuffix(suffix); s != "" {
		name += "-" + s
	}
	path := filepath.Join(os.TempDir(), name+".log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create log file %s: %w", path, err)
	}

	l := &Logger{path: path, file: f, buf: bufio.NewWriterSize(f, 16*1024)}
	l.setOutput(l.fileWriter())
	return l, nil
}

func (l *Logger) fileWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: lockedWriter{l}, NoColor: true, TimeFormat: timeFormat}
}

// MirrorTo additionally writes entries at or above level to w.
func (l *Logger) MirrorTo(w io.Writer, level zerolog.Level) {
	if l == nil || w == nil {
		return
	}
	console := zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.Kitchen}},
		Level:  level,
	}
	file := zerolog.LevelWriterAdapter{Writer: l.fileWriter()}
	l.setOutput(zerolog.MultiLevelWriter(file, &console))
}

func (l *Logger) setOutput(w io.Writer) {
	zl := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	l.zl.Store(&zl)
}

// Path returns the log file path, or "" for a nil logger.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Logger) Debug(msg string) { l.log(zerolog.DebugLevel, msg) }

func (l *Logger) Info(msg string) { l.log(zerolog.InfoLevel, msg) }

func (l *Logger) Warn(msg string) { l.log(zerolog.WarnLevel, msg) }

func (l *Logger) Error(msg string) { l.log(zerolog.ErrorLevel, msg) }

func (l *Logger) log(level zerolog.Level, msg string) {
	if l == nil || l.closed.Load() {
		return
	}
	if level >= zerolog.WarnLevel {
		l.cacheError(msg)
	}
	l.zl.Load().WithLevel(level).Msg(msg)
}

func (l *Logger) cacheError(msg string) {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if len(l.errorEntries) >= maxErrorEntries {
		copy(l.errorEntries, l.errorEntries[1:])
		l.errorEntries = l.errorEntries[:maxErrorEntries-1]
	}
	l.errorEntries = append(l.errorEntries, msg)
}

// ExtractRecentErrors returns up to maxEntries of the latest warn and error
// messages, oldest first.
func (l *Logger) ExtractRecentErrors(maxEntries int) []string {
	if l == nil || maxEntries <= 0 {
		return nil
	}
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if len(l.errorEntries) == 0 {
		return nil
	}
	start := 0
	if len(l.errorEntries) > maxEntries {
		start = len(l.errorEntries) - maxEntries
	}
	return append([]string(nil), l.errorEntries[start:]...)
}

// Flush writes buffered entries through to the file.
func (l *Logger) Flush() {
	if l == nil || l.buf == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Load() {
		return
	}
	_ = l.buf.Flush()
	_ = l.file.Sync()
}

// Close flushes and closes the file. The file itself is kept for debugging.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		flushErr := l.buf.Flush()
		l.closed.Store(true)
		err = errors.Join(flushErr, l.file.Close())
	})
	return err
}

// RemoveLogFile deletes the log file; a missing file is not an error.
func (l *Logger) RemoveLogFile() error {
	if l == nil || l.path == "" {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// sanitizeLogSuffix maps raw to a file-name-safe token. Inputs that needed
// rewriting get a hash of the raw text appended so distinct inputs never
// share a file.
func sanitizeLogSuffix(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	safe := strings.Trim(b.String(), ".-_")
	if safe == raw {
		return safe
	}
	if safe == "" {
		safe = "log"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(raw))
	return fmt.Sprintf("%s-%08x", safe, h.Sum32())
}

// CleanupOldLogs removes log files whose writer process is gone. Files that
// cannot be attributed to a pid, or that fail the safety checks, are kept.
func CleanupOldLogs() (CleanupStats, error) {
	var stats CleanupStats
	tempDir := os.TempDir()
	base := canonicalDir(tempDir)

	var matches []string
	for _, prefix := range LogPrefixes() {
		found, err := ops.glob(filepath.Join(tempDir, prefix+"-*.log"))
		if err != nil {
			return CleanupStats{}, fmt.Errorf("list log files: %w", err)
		}
		matches = append(matches, found...)
	}

	var removeErrs []error
	for _, path := range matches {
		stats.Scanned++
		if !removable(path, base) {
			stats.Kept++
			stats.KeptFiles = append(stats.KeptFiles, path)
			continue
		}
		if err := ops.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			stats.Errors++
			removeErrs = append(removeErrs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		stats.Deleted++
		stats.DeletedFiles = append(stats.DeletedFiles, path)
	}
	return stats, errors.Join(removeErrs...)
}

// removable reports whether path is a plain log file inside base whose
// writer no longer runs.
func removable(path, base string) bool {
	pid, ok := pidFromLogName(path)
	if !ok {
		return false
	}
	info, err := ops.lstat(path)
	if err != nil {
		LogWarn(fmt.Sprintf("skipping %s: cannot stat file: %v", path, err))
		return false
	}
	if info.Mode()&os.ModeSymlink != 0 {
		LogWarn(fmt.Sprintf("skipping %s: refusing to delete symlink", path))
		return false
	}
	if !within(path, base) {
		LogWarn(fmt.Sprintf("skipping %s: file is outside the temp directory", path))
		return false
	}
	return !writerAlive(ops.inspect(pid), info.ModTime())
}

// writerAlive reports whether a process in state st can be the one that last
// wrote a file at modTime. A pid that started after the write was recycled.
func writerAlive(st procState, modTime time.Time) bool {
	if !st.alive {
		return false
	}
	if st.started.IsZero() {
		return time.Since(modTime) <= staleLogAge
	}
	return !st.started.After(modTime)
}

func canonicalDir(dir string) string {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Clean(dir)
}

// within reports whether path, with symlinks resolved, lies under base.
func within(path, base string) bool {
	resolved, err := ops.resolve(path)
	if err != nil {
		return false
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}
	rel, err := filepath.Rel(base, filepath.Clean(resolved))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// pidFromLogName extracts the pid from <prefix>-<pid>[-suffix].log.
func pidFromLogName(path string) (int, bool) {
	name, ok := strings.CutSuffix(filepath.Base(path), ".log")
	if !ok {
		return 0, false
	}
	for _, prefix := range LogPrefixes() {
		rest, ok := strings.CutPrefix(name, prefix+"-")
		if !ok {
			continue
		}
		pidPart, _, _ := strings.Cut(rest, "-")
		pid, err := strconv.Atoi(pidPart)
		if err != nil || pid <= 0 {
			return 0, false
		}
		return pid, true
	}
	return 0, false
}
