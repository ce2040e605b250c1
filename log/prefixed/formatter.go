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

// Package prefixed implements a logrus.Formatter that renders entries as a
// single line of "TIMESTAMP LEVEL message key=value ...", with the level
// colored unless DisableColors is set. This is the text format used for both
// console and non-JSON file output.
package prefixed

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultTimestampFormat = "2006-01-02 15:04:05"

var (
	colorGrey   = 37
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
)

func levelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return colorGrey
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorBlue
	}
}

// TextFormatter formats logrus entries as human-readable single lines.
type TextFormatter struct {
	// FullTimestamp has no effect: Format always prints the full
	// timestamp in TimestampFormat (never an elapsed-time marker) unless
	// DisableTimestamp is set.
	FullTimestamp bool

	// TimestampFormat is the time.Format layout of the timestamp.
	// Defaults to "2006-01-02 15:04:05".
	TimestampFormat string

	// DisableColors strips ANSI color codes, for file output or
	// non-terminal destinations.
	DisableColors bool

	// DisableTimestamp omits the timestamp field entirely.
	DisableTimestamp bool

	once sync.Once
}

func (f *TextFormatter) init() {
	if f.TimestampFormat == "" {
		f.TimestampFormat = defaultTimestampFormat
	}
}

// Format implements logrus.Formatter.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	f.once.Do(f.init)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format(f.TimestampFormat))
		b.WriteByte(' ')
	}

	level := strings.ToUpper(entry.Level.String())
	if f.DisableColors {
		fmt.Fprintf(b, "%-5s ", level)
	} else {
		fmt.Fprintf(b, "\x1b[%dm%-5s\x1b[0m ", levelColor(entry.Level), level)
	}

	b.WriteString(entry.Message)

	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, formatValue(entry.Data[k]))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func formatValue(v interface{}) interface{} {
	switch val := v.(type) {
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}
