package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"fpbridge/pkg/types"
	"fpbridge/pkg/utils"
)

// LogEntry represents a log entry
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Logger writes leveled messages to a log file and keeps the most
// recent entries in an in-memory ring buffer for the /logs endpoint.
type Logger struct {
	config  *types.Config
	logFile *os.File
	mutex   sync.Mutex
	colored bool

	logBuffer   []LogEntry
	bufferSize  int
	bufferPos   int
	bufferMutex sync.RWMutex

	logFileSize       int64
	lastRotationCheck time.Time
}

const logDir = "logs"

var levelColors = map[string]string{
	"INFO":  "\033[32m",
	"WARN":  "\033[33m",
	"ERROR": "\033[31m",
	"DEBUG": "\033[36m",
}

// NewLogger creates new logger instance
func NewLogger(config *types.Config) *Logger {
	bufferSize := 1000
	logger := &Logger{
		config:     config,
		colored:    isatty.IsTerminal(os.Stdout.Fd()),
		logBuffer:  make([]LogEntry, bufferSize),
		bufferSize: bufferSize,
	}

	os.MkdirAll(logDir, 0755)

	if config.LogFile != "" {
		if file, err := os.OpenFile(filepath.Join(logDir, config.LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			logger.logFile = file
			if stat, err := file.Stat(); err == nil {
				logger.logFileSize = stat.Size()
			}
		}
	}

	logger.lastRotationCheck = time.Now()
	return logger
}

// Info logs info message
func (l *Logger) Info(message string) {
	l.log("INFO", message)
}

// Warn logs warning message
func (l *Logger) Warn(message string) {
	l.log("WARN", message)
}

// Error logs error message
func (l *Logger) Error(message string) {
	l.log("ERROR", message)
}

// Debug logs debug message
func (l *Logger) Debug(message string) {
	l.log("DEBUG", message)
}

func (l *Logger) log(level, message string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := time.Now()
	timestamp := now.Format("02-01-2006 15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s\n", timestamp, level, message)
	logLineBytes := int64(len(logLine))

	if l.logFile != nil {
		if l.shouldRotate(logLineBytes) {
			l.rotateLogFile()
		}
		l.logFile.WriteString(logLine)
		l.logFileSize += logLineBytes
	}

	if level == "INFO" || level == "WARN" || level == "ERROR" {
		if l.colored {
			fmt.Printf("[%s] %s%s\033[0m: %s\n", timestamp, levelColors[level], level, message)
		} else {
			fmt.Print(logLine)
		}
	}

	l.addToBuffer(LogEntry{Time: now, Level: level, Message: message})
}

func (l *Logger) addToBuffer(entry LogEntry) {
	l.bufferMutex.Lock()
	defer l.bufferMutex.Unlock()

	l.logBuffer[l.bufferPos] = entry
	l.bufferPos = (l.bufferPos + 1) % l.bufferSize
}

func (l *Logger) shouldRotate(newLineSize int64) bool {
	if !l.config.LogRotationEnabled {
		return false
	}

	if l.config.LogRotationMaxSize > 0 && l.logFileSize+newLineSize > l.config.LogRotationMaxSize {
		return true
	}

	if l.config.LogRotationMaxDays > 0 {
		now := time.Now()
		if now.Sub(l.lastRotationCheck) > 24*time.Hour {
			l.lastRotationCheck = now
			if stat, err := l.logFile.Stat(); err == nil {
				if now.Sub(stat.ModTime()) > time.Duration(l.config.LogRotationMaxDays)*24*time.Hour {
					return true
				}
			}
		}
	}

	return false
}

func (l *Logger) rotateLogFile() {
	fileName := l.config.LogFile
	if l.logFile == nil || fileName == "" {
		return
	}

	l.logFile.Close()

	timestamp := time.Now().Format("20060102_150405")
	baseName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	ext := filepath.Ext(fileName)
	rotatedPath := filepath.Join(logDir, fmt.Sprintf("%s_%s%s", baseName, timestamp, ext))
	originalPath := filepath.Join(logDir, fileName)

	if err := os.Rename(originalPath, rotatedPath); err != nil {
		fmt.Printf("Warning: Failed to rotate log file %s: %v\n", fileName, err)
	}

	if newFile, err := os.OpenFile(originalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		l.logFile = newFile
		l.logFileSize = 0
	}

	l.cleanupOldLogs(baseName, ext)
}

func (l *Logger) cleanupOldLogs(baseName, ext string) {
	if l.config.LogRotationMaxFiles == 0 && l.config.LogRotationMaxDays == 0 {
		return
	}

	matches, err := filepath.Glob(filepath.Join(logDir, baseName+"_*"+ext))
	if err != nil {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, match := range matches {
		if stat, err := os.Stat(match); err == nil {
			files = append(files, fileInfo{path: match, modTime: stat.ModTime()})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	if l.config.LogRotationMaxFiles > 0 && len(files) > l.config.LogRotationMaxFiles {
		toRemove := len(files) - l.config.LogRotationMaxFiles
		for i := 0; i < toRemove; i++ {
			os.Remove(files[i].path)
		}
		files = files[toRemove:]
	}

	if l.config.LogRotationMaxDays > 0 {
		maxAge := time.Duration(l.config.LogRotationMaxDays) * 24 * time.Hour
		now := time.Now()
		for _, file := range files {
			if now.Sub(file.modTime) > maxAge {
				os.Remove(file.path)
			}
		}
	}
}

// GetRecentLogs returns recent log entries from ring buffer, most recent first
func (l *Logger) GetRecentLogs(level string, limit int) []LogEntry {
	l.bufferMutex.RLock()
	defer l.bufferMutex.RUnlock()

	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	entries := make([]LogEntry, 0, l.bufferSize)
	for i := 0; i < l.bufferSize; i++ {
		idx := (l.bufferPos + i) % l.bufferSize
		entry := l.logBuffer[idx]
		if entry.Time.IsZero() {
			continue
		}
		if level == "" || entry.Level == level {
			entries = append(entries, entry)
		}
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// LogFrame writes a raw frame hex dump to the low-level log file.
// direction is "TX" or "RX".
func (l *Logger) LogFrame(direction string, data []byte) {
	if l.config.LogFileLow == "" || len(data) == 0 {
		return
	}

	logLine := fmt.Sprintf("%s [%s]:\n%s\n", direction, time.Now().Format("15:04:05.000"), utils.Dump(data))

	os.MkdirAll(logDir, 0755)
	if file, err := os.OpenFile(filepath.Join(logDir, l.config.LogFileLow), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		defer file.Close()
		file.WriteString(logLine)
	}
}

// Close closes log files
func (l *Logger) Close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
}
