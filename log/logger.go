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

package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// logger is the concrete Logger implementation backed by the package-level
// logrus instance. It carries a context of key/value pairs that is merged
// into every entry written through it, so that New(ctx...) can build up
// scoped child loggers (e.g. one per chum connection).
type logger struct {
	ctx     []interface{}
	mapPool interface {
		Get() interface{}
		Put(interface{})
	}
}

func toLevel(lvl Lvl) logrus.Level {
	switch lvl {
	case LvlCrit:
		return logrus.FatalLevel
	case LvlFatal:
		return logrus.FatalLevel
	case LvlError:
		return logrus.ErrorLevel
	case LvlWarn:
		return logrus.WarnLevel
	case LvlInfo:
		return logrus.InfoLevel
	case LvlDebug:
		return logrus.DebugLevel
	case LvlTrace:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// write merges l.ctx with ctx into a fields map and emits one entry at lvl.
// skip is accepted for interface parity with call sites that track caller
// depth; logrus derives its own caller info when ReportCaller is enabled.
func (l *logger) write(msg string, lvl Lvl, ctx []interface{}, skip int) {
	fieldsRaw := l.mapPool.Get()
	fields, ok := fieldsRaw.(map[string]interface{})
	if !ok {
		fields = make(map[string]interface{})
	}
	for k := range fields {
		delete(fields, k)
	}
	defer l.mapPool.Put(fields)

	mergeCtx(fields, l.ctx)
	mergeCtx(fields, ctx)

	terminal.WithFields(logrus.Fields(fields)).Log(toLevel(lvl), msg)
}

// mergeCtx flattens an alternating key,value,key,value... slice into fields.
func mergeCtx(fields map[string]interface{}, ctx []interface{}) {
	ctx = normalize(ctx)
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = "INVALID_KEY"
		}
		fields[key] = ctx[i+1]
	}
}

// normalize pads an odd-length alternating key/value slice with a trailing
// nil value so callers never need to special-case a missing final value.
func normalize(ctx []interface{}) []interface{} {
	if len(ctx)%2 != 0 {
		return append(ctx, nil)
	}
	return ctx
}

// Ctx is a convenience map for building logger context key/value pairs.
type Ctx map[string]interface{}

// toArray flattens c into an alternating key,value,... slice suitable for
// New or the package-level logging functions.
func (c Ctx) toArray() []interface{} {
	arr := make([]interface{}, 0, len(c)*2)
	for k, v := range c {
		arr = append(arr, k, v)
	}
	return arr
}

// New returns a new Logger that has this logger's context plus ctx.
func (l *logger) New(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return &logger{ctx: merged, mapPool: l.mapPool}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(msg, LvlTrace, ctx, skipLevel) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(msg, LvlDebug, ctx, skipLevel) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(msg, LvlInfo, ctx, skipLevel) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(msg, LvlWarn, ctx, skipLevel) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(msg, LvlError, ctx, skipLevel) }
func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(msg, LvlCrit, ctx, skipLevel)
	os.Exit(1)
}
