// Copyright 2022-2026 The OneCore Authors
// This file is part of the OneCore library.
//
// The OneCore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The OneCore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the OneCore library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the structured, leveled logger used across the
// store, sync, and crypto packages. It wraps logrus with a go-ethereum
// style context-chaining API (log.New(ctx...).Info(msg, ctx...)) and
// adds size/age/total-size rotation on top via lumberjack.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/refinio/onecore/conf"
	"github.com/refinio/onecore/log/prefixed"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	root = &logger{ctx: []interface{}{}, mapPool: &sync.Pool{
		New: func() any {
			return map[string]interface{}{}
		},
	}}
	terminal = logrus.New()

	// logManager runs the background total-size sweep, when configured.
	logManager *LogManager
)

type Lvl int

const skipLevel = 3

const (
	LvlCrit Lvl = iota
	LvlFatal
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

// LogManager periodically enforces an aggregate size cap across all log
// files in a directory, removing the oldest first.
type LogManager struct {
	logDir        string
	totalSizeCap  int64 // bytes
	checkInterval time.Duration
	cancel        context.CancelFunc
	mu            sync.Mutex
}

// NewLogManager creates a log manager bounding logDir to totalSizeCapMB.
func NewLogManager(logDir string, totalSizeCapMB int) *LogManager {
	return &LogManager{
		logDir:        logDir,
		totalSizeCap:  int64(totalSizeCapMB) * 1024 * 1024,
		checkInterval: 1 * time.Hour,
	}
}

// Start launches the background cleanup goroutine.
func (m *LogManager) Start() {
	if m.totalSizeCap <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func() {
		ticker := time.NewTicker(m.checkInterval)
		defer ticker.Stop()

		m.cleanup()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.cleanup()
			}
		}
	}()
}

// Stop cancels the background cleanup goroutine.
func (m *LogManager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *LogManager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := m.getLogFiles()
	if err != nil {
		return
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.size
	}

	for totalSize > m.totalSizeCap && len(files) > 1 {
		oldest := files[0]
		if err := os.Remove(oldest.path); err == nil {
			totalSize -= oldest.size
			files = files[1:]
			Info("Log cleanup: removed old file", "file", filepath.Base(oldest.path), "size_mb", oldest.size/1024/1024)
		}
	}
}

type logFileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

func (m *LogManager) getLogFiles() ([]logFileInfo, error) {
	var files []logFileInfo

	err := filepath.Walk(m.logDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".log" || ext == ".gz" {
			files = append(files, logFileInfo{
				path:    path,
				size:    info.Size(),
				modTime: info.ModTime(),
			})
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	return files, nil
}

// Init wires up the root logger from a node and logger config.
//
// Strategy:
//   - LogFile empty: console output only
//   - LogFile set: file output (console too, if Console is set), rotated
//     by size/count/age and optionally compressed
func Init(nodeConfig conf.NodeConfig, config conf.LoggerConfig) {
	_ = config.Validate()

	formatter := &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		DisableColors:   false,
	}

	lvl, _ := logrus.ParseLevel(config.Level)

	if config.LogFile == "" {
		terminal.SetFormatter(formatter)
		terminal.SetLevel(lvl)
		terminal.SetOutput(os.Stdout)
		return
	}

	logDir := filepath.Join(nodeConfig.DataDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		return
	}

	logPath := filepath.Join(logDir, config.LogFile)

	lj := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  config.LocalTime,
	}

	var fileFormatter logrus.Formatter
	if config.JSONFormat {
		fileFormatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"}
	} else {
		fileFormatter = &prefixed.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
			DisableColors:   true,
		}
	}

	terminal.SetFormatter(fileFormatter)
	terminal.SetLevel(lvl)

	if config.Console {
		terminal.SetOutput(io.MultiWriter(lj, os.Stdout))
	} else {
		terminal.SetOutput(lj)
	}

	if config.TotalSizeCap > 0 {
		logManager = NewLogManager(logDir, config.TotalSizeCap)
		logManager.Start()
	}

	Info("Logger initialized",
		"file", logPath,
		"level", config.Level,
		"max_size_mb", config.MaxSize,
		"max_backups", config.MaxBackups,
		"max_age_days", config.MaxAge,
		"compress", config.Compress,
		"total_size_cap_mb", config.TotalSizeCap,
	)
}

// Close stops the background log manager, if one is running.
func Close() {
	if logManager != nil {
		logManager.Stop()
	}
}

// New returns a new logger with the given context.
// New is a convenient alias for Root().New
func New(ctx ...interface{}) Logger {
	return root.New(ctx...)
}

// Root returns the root logger
func Root() Logger {
	return root
}

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...interface{}) {
	root.write(msg, LvlTrace, ctx, skipLevel)
}

func Tracef(msg string, ctx ...interface{}) {
	root.write(fmt.Sprintf(msg, ctx...), LvlTrace, []interface{}{}, skipLevel)
}

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...interface{}) {
	root.write(msg, LvlDebug, ctx, skipLevel)
}

func Debugf(msg string, ctx ...interface{}) {
	root.write(fmt.Sprintf(msg, ctx...), LvlDebug, []interface{}{}, skipLevel)
}

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...interface{}) {
	root.write(msg, LvlInfo, ctx, skipLevel)
}

// Infof is a convenient alias for Root().Info
func Infof(msg string, ctx ...interface{}) {
	root.write(fmt.Sprintf(msg, ctx...), LvlInfo, []interface{}{}, skipLevel)
}

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...interface{}) {
	root.write(msg, LvlWarn, ctx, skipLevel)
}

// Warnf is a convenient alias for Root().Warn
func Warnf(msg string, ctx ...interface{}) {
	root.write(fmt.Sprintf(msg, ctx...), LvlWarn, []interface{}{}, skipLevel)
}

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...interface{}) {
	root.write(msg, LvlError, ctx, skipLevel)
}

// Errorf is a convenient alias for Root().Error
func Errorf(msg string, ctx ...interface{}) {
	root.write(fmt.Sprintf(msg, ctx...), LvlError, []interface{}{}, skipLevel)
}

// Crit is a convenient alias for Root().Crit
func Crit(msg string, ctx ...interface{}) {
	root.write(msg, LvlCrit, ctx, skipLevel)
	os.Exit(1)
}

// Critf is a convenient alias for Root().Crit
func Critf(msg string, ctx ...interface{}) {
	root.write(fmt.Sprintf(msg, ctx...), LvlCrit, []interface{}{}, skipLevel)
	os.Exit(1)
}

// A Logger writes key/value pairs to a Handler
type Logger interface {
	// New returns a new Logger that has this logger's context plus the given context
	New(ctx ...interface{}) Logger

	// Log a message at the given level with context key/value pairs
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

// TerminalStringer is an analogous interface to the stdlib stringer, allowing
// own types to have custom shortened serialization formats when printed to the
// screen.
type TerminalStringer interface {
	TerminalString() string
}
