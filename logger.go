// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import "go.uber.org/zap"

// Logger is the structured logger threaded from Server down through Gate,
// connection, and exchange. It wraps zap.Logger rather than defining a
// bespoke interface, the same choice the rest of the ecosystem makes when
// structured logging is already the house style.
type Logger struct {
	z *zap.Logger
}

// NewLogger wraps an existing zap.Logger. A nil z is treated as NopLogger.
func NewLogger(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NopLogger discards everything, the Server default when no Logger is
// configured.
func NopLogger() *Logger { return &Logger{z: zap.NewNop()} }

// With returns a derived Logger carrying additional structured fields on
// every subsequent call, e.g. a connection's remote address.
func (l *Logger) With(fields ...zap.Field) *Logger {
	if l == nil {
		return NopLogger().With(fields...)
	}
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	if l != nil {
		l.z.Info(msg, fields...)
	}
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if l != nil {
		l.z.Warn(msg, fields...)
	}
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	if l != nil {
		l.z.Error(msg, fields...)
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l != nil {
		l.z.Debug(msg, fields...)
	}
}
