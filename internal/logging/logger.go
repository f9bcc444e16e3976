package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxAge is how long dated log files are kept
	DefaultMaxAge = 3 * 24 * time.Hour

	DirPermissions  = 0755
	FilePermissions = 0644

	// MaxMessageLength caps messages coming from the page agent
	MaxMessageLength = 4000

	// MaxDataSize caps the number of keys in agent log data
	MaxDataSize = 32

	// MaxDataValueLength caps individual agent log values
	MaxDataValueLength = 500

	filePrefix = "app"
	dateLayout = "2006-01-02"
)

// SensitiveKeys are redacted from agent log data. Prompt and response
// text is user content and never belongs in a log file.
var SensitiveKeys = []string{
	"password", "token", "secret", "cookie", "session",
	"authorization", "auth", "credential", "api_key", "apikey",
	"prompt", "response", "content", "text", "email",
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
	activeFile    *RotatingFile
)

// Config holds logger configuration
type Config struct {
	Dir        string        // Directory for log files
	MaxAge     time.Duration // Dated files older than this are removed
	Level      string        // debug, info, warn or error
	JSONOutput bool
	DevMode    bool // Also write to stdout
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Dir:        filepath.Join(homeDir, ".geminidesk", "logs"),
		MaxAge:     DefaultMaxAge,
		Level:      "info",
		JSONOutput: true,
	}
}

// RotatingFile is an io.Writer that starts a new file every day and
// keeps an app.log symlink pointing at the current one
type RotatingFile struct {
	dir    string
	prefix string
	maxAge time.Duration
	now    func() time.Time

	mu          sync.Mutex
	file        *os.File
	date        string
	cleaningUp  atomic.Bool
	cleanupDone chan struct{}
}

// OpenRotatingFile opens today's file in dir, creating dir if needed
func OpenRotatingFile(dir, prefix string, maxAge time.Duration) (*RotatingFile, error) {
	return openRotatingFile(dir, prefix, maxAge, time.Now)
}

func openRotatingFile(dir, prefix string, maxAge time.Duration, now func() time.Time) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	rf := &RotatingFile{dir: dir, prefix: prefix, maxAge: maxAge, now: now}
	if err := rf.openFor(now().Format(dateLayout)); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write implements io.Writer
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if today := rf.now().Format(dateLayout); today != rf.date {
		if err := rf.openFor(today); err != nil {
			return 0, err
		}
		rf.startCleanup()
	}
	return rf.file.Write(p)
}

func (rf *RotatingFile) openFor(date string) error {
	if rf.file != nil {
		rf.file.Close()
	}

	name := filepath.Join(rf.dir, rf.prefix+"."+date+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, FilePermissions)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	rf.file = f
	rf.date = date

	link := filepath.Join(rf.dir, rf.prefix+".log")
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove log symlink", "path", link, "error", err)
	}
	if err := os.Symlink(name, link); err != nil {
		slog.Warn("Failed to create log symlink", "path", link, "error", err)
	}
	return nil
}

// startCleanup removes expired files in the background, one run at a time
func (rf *RotatingFile) startCleanup() {
	if !rf.cleaningUp.CompareAndSwap(false, true) {
		return
	}
	done := make(chan struct{})
	rf.cleanupDone = done
	go func() {
		defer close(done)
		defer rf.cleaningUp.Store(false)
		rf.removeExpired()
	}()
}

func (rf *RotatingFile) removeExpired() {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		slog.Warn("Failed to read log directory", "dir", rf.dir, "error", err)
		return
	}

	cutoff := rf.now().Add(-rf.maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !isDatedLog(entry.Name(), rf.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(rf.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to remove old log file", "path", path, "error", err)
		}
	}
}

// isDatedLog matches prefix.YYYY-MM-DD.log but not the prefix.log symlink
func isDatedLog(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix+".") || !strings.HasSuffix(name, ".log") {
		return false
	}
	date := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"."), ".log")
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// Close closes the current file
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(name string) (slog.Level, bool) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return slog.LevelInfo, false
	}
	return lvl, true
}

// Init builds the global logger from cfg and installs it as the slog default
func Init(cfg Config) error {
	rf, err := OpenRotatingFile(cfg.Dir, filePrefix, cfg.MaxAge)
	if err != nil {
		return err
	}

	var out io.Writer = rf
	if cfg.DevMode {
		out = io.MultiWriter(rf, os.Stdout)
	}

	level, _ := ParseLevel(cfg.Level)
	logger := slog.New(newHandler(out, level, cfg.JSONOutput))

	loggerMu.Lock()
	if activeFile != nil {
		activeFile.Close()
	}
	activeFile = rf
	defaultLogger = logger
	loggerMu.Unlock()

	slog.SetDefault(logger)
	return nil
}

func newHandler(w io.Writer, level slog.Level, jsonOutput bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}
	if jsonOutput {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Close flushes and closes the log file
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if activeFile == nil {
		return nil
	}
	err := activeFile.Close()
	activeFile = nil
	return err
}

// Logger returns the global logger
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// LogEntry is a log line sent by the page agent
type LogEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Page    string         `json:"page,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// LogFromFrontend writes an agent log entry after sanitizing it
func LogFromFrontend(entry LogEntry) {
	level, ok := ParseLevel(entry.Level)
	if !ok {
		Logger().Warn("Invalid log level from page agent, using info", "level", entry.Level)
	}

	logger := Logger().With("source", "agent")
	if entry.Page != "" {
		logger = logger.With("page", stripQuery(entry.Page))
	}
	if data := sanitizeData(entry.Data); len(data) > 0 {
		logger = logger.With("data", data)
	}
	logger.Log(context.Background(), level, truncate(entry.Message, MaxMessageLength))
}

func sanitizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	result := make(map[string]any, min(len(data), MaxDataSize+1))
	for key, value := range data {
		if len(result) >= MaxDataSize {
			result["_truncated"] = true
			break
		}
		if isSensitive(key) {
			result[key] = "[REDACTED]"
			continue
		}
		if s, ok := value.(string); ok {
			value = truncate(s, MaxDataValueLength)
		}
		result[key] = value
	}
	return result
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range SensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "...[truncated]"
	}
	return s
}

// stripQuery drops query and fragment from a page URL before it is logged
func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// MaskPath replaces the home directory with ~
func MaskPath(path string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return path
	}
	if strings.HasPrefix(path, homeDir) {
		return "~" + path[len(homeDir):]
	}
	return path
}
