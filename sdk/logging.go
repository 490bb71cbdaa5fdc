// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sdk

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewStdLogger returns the SDK's zero-configuration default: a
// logr.Logger backed by the standard library's log package, the way a
// dependency with no opinion on logging backend should behave until a
// host process wires in something richer.
func NewStdLogger() logr.Logger {
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
}

// NewZapLogger adapts a *zap.Logger to logr.Logger, for hosts that
// already standardize on zap and want the SDK's diagnostics (dropped
// measurements, view conflicts, exporter failures) folded into their
// existing structured log stream instead of stdlib's log package.
func NewZapLogger(z *zap.Logger) logr.Logger {
	return logr.New(&zapSink{logger: z, name: "telemetry-core"})
}

// zapSink implements logr.LogSink over a *zap.Logger. logr has no
// official zap adapter dependency wired into this module, so the
// bridge is hand-written the same shape stdr's own sink takes:
// V-levels map to zap's Debug (>0) and Info (0) severities, and
// WithValues/WithName return a new sink carrying the accumulated
// fields/name rather than mutating the receiver, per logr's
// immutable-sink contract.
type zapSink struct {
	logger *zap.Logger
	name   string
}

var _ logr.LogSink = (*zapSink)(nil)

func (s *zapSink) Init(info logr.RuntimeInfo) {}

func (s *zapSink) Enabled(level int) bool { return true }

func (s *zapSink) Info(level int, msg string, keysAndValues ...interface{}) {
	fields := s.fields(keysAndValues)
	if level > 0 {
		s.logger.Debug(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}

func (s *zapSink) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(s.fields(keysAndValues), zap.Error(err))
	s.logger.Error(msg, fields...)
}

func (s *zapSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &zapSink{logger: s.logger.With(s.fields(keysAndValues)...), name: s.name}
}

func (s *zapSink) WithName(name string) logr.LogSink {
	full := name
	if s.name != "" {
		full = s.name + "." + name
	}
	return &zapSink{logger: s.logger.Named(name), name: full}
}

func (s *zapSink) fields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
