// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package envelope carries the request context, trace span and logger through the matchmaking core.
package envelope

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/vocabattle/battle-matchmaker/pkg/common"
)

const (
	traceIDLogField = "traceID"
	tracerName      = "battle-matchmaker"

	ParticipantTag = "battle.participant_id"
	MatchTag       = "battle.match_id"
	ModeTag        = "battle.mode"
)

// Scope used as the envelope to combine and transport request-related information by the chain of function calls
type Scope struct {
	Ctx     context.Context
	TraceID string
	span    oteltrace.Span
	Log     *logrus.Entry
}

// NewRootScope starts a root span. An empty or malformed traceID is replaced with a generated one.
func NewRootScope(rootCtx context.Context, name string, traceID string) *Scope {
	ctx, span := otel.Tracer(tracerName).Start(rootCtx, name)

	if traceID == "" || len(traceID) != 32 {
		traceID = span.SpanContext().TraceID().String()
		if !span.SpanContext().HasTraceID() {
			traceID = common.GenerateUUID()
		}
	}

	return &Scope{
		Ctx:     ctx,
		TraceID: traceID,
		span:    span,
		Log:     logrus.WithField(traceIDLogField, traceID),
	}
}

// NewRootScopeWithLogger is NewRootScope logging through logger instead of the std logger.
func NewRootScopeWithLogger(rootCtx context.Context, name string, logger *logrus.Logger) *Scope {
	scope := NewRootScope(rootCtx, name, "")
	scope.SetLogger(logger)
	return scope
}

// SetLogger allows for setting a different logger than the default std logger. This is mostly useful for testing.
func (s *Scope) SetLogger(logger *logrus.Logger) {
	s.Log = logger.WithField(traceIDLogField, s.TraceID)
}

// Finish finishes current scope
func (s *Scope) Finish() {
	s.span.End()
}

// NewChildScope creates new child Scope.
func (s *Scope) NewChildScope(name string) *Scope {
	return s.NewChildScopeWithContext(s.Ctx, name)
}

// NewChildScopeWithContext creates a child Scope whose span and context derive from ctx, so that
// cancellation of a caller's context reaches the store calls made under the child.
func (s *Scope) NewChildScopeWithContext(ctx context.Context, name string) *Scope {
	if ctx == nil {
		ctx = s.Ctx
	}
	childCtx, span := s.span.TracerProvider().Tracer(tracerName).Start(ctx, name)

	return &Scope{
		Ctx:     childCtx,
		TraceID: s.TraceID,
		span:    span,
		Log:     s.Log,
	}
}

// WithField returns a copy of the scope whose logger carries an extra field.
func (s *Scope) WithField(key string, value interface{}) *Scope {
	clone := *s
	clone.Log = s.Log.WithField(key, value)
	return &clone
}

// SetAttributes adds attributes onto a span based on the value object type
func (s *Scope) SetAttributes(key string, value interface{}) {
	switch v := value.(type) {
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case time.Duration:
		s.span.SetAttributes(attribute.Int64(key, v.Milliseconds()))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}
