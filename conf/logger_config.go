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

package conf

// LoggerConfig controls log output and rotation.
//
// Rotation policy:
//   - once a file exceeds MaxSize MB it is rolled to a timestamped backup
//   - backups beyond MaxBackups or older than MaxAge days are removed
//   - Compress gzips rolled-over backups
//
// Suggested presets:
//   - production: MaxSize=100, MaxBackups=10, MaxAge=30, Compress=true
//   - development: MaxSize=10, MaxBackups=3, MaxAge=7, Compress=false
type LoggerConfig struct {
	// LogFile is the log file name (empty means console-only output).
	// A relative path is resolved under DataDir/log/.
	LogFile string `json:"name" yaml:"name"`

	// Level is one of trace, debug, info, warn, error, fatal.
	Level string `json:"level" yaml:"level"`

	// MaxSize is the per-file size limit in MB before rotation.
	MaxSize int `json:"max_size" yaml:"max_size"`

	// MaxBackups is the number of rotated files kept. 0 means unlimited
	// (still bounded by MaxAge).
	MaxBackups int `json:"max_count" yaml:"max_count"`

	// MaxAge is the number of days a rotated file is kept before deletion.
	// 0 means unbounded (still bounded by MaxBackups).
	MaxAge int `json:"max_day" yaml:"max_day"`

	// Compress gzips rotated files.
	Compress bool `json:"compress" yaml:"compress"`

	// TotalSizeCap is the aggregate size limit in MB across all log files
	// in the log directory; the oldest files are removed once exceeded.
	// 0 disables the total-size sweep.
	TotalSizeCap int `json:"total_size_cap" yaml:"total_size_cap"`

	// LocalTime names rotated files using local time instead of UTC.
	LocalTime bool `json:"local_time" yaml:"local_time"`

	// Console also writes to stdout even when LogFile is set.
	Console bool `json:"console" yaml:"console"`

	// JSONFormat writes file output as JSON lines. When LogFile and
	// Console are both set, the stdout copy uses the same format as the
	// file.
	JSONFormat bool `json:"json_format" yaml:"json_format"`
}

// DefaultLoggerConfig returns the default configuration; its rotation
// values are those of the production preset above.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		LogFile:      "",
		Level:        "info",
		MaxSize:      100,
		MaxBackups:   10,
		MaxAge:       30,
		Compress:     true,
		TotalSizeCap: 0,
		LocalTime:    true,
		Console:      true,
		JSONFormat:   true,
	}
}

// Validate clamps out-of-range fields to their defaults.
func (c *LoggerConfig) Validate() error {
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups < 0 {
		c.MaxBackups = 10
	}
	if c.MaxAge < 0 {
		c.MaxAge = 30
	}
	return nil
}
