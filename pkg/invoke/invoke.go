// Package invoke runs one remote call and turns its failure into a logged,
// classified soft failure instead of an error the caller must propagate.
package invoke

import (
	"context"
	stderrors "errors"

	"github.com/rs/zerolog"

	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
)

// Recorder receives every soft failure. A metrics collector is the usual
// implementation.
type Recorder interface {
	SoftFailure(operation string, kind errors.Kind)
}

type recorderKey struct{}

// WithRecorder returns a context whose soft failures are also reported to r.
func WithRecorder(ctx context.Context, r Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

func recorderFrom(ctx context.Context) Recorder {
	r, _ := ctx.Value(recorderKey{}).(Recorder)
	return r
}

// Failure describes a classified soft failure.
type Failure struct {
	Operation string
	Kind      errors.Kind
	Err       error
}

// Error implements the error interface
func (f *Failure) Error() string {
	return f.Operation + ": " + f.Kind.String() + ": " + f.Err.Error()
}

// Unwrap implements errors.Unwrap
func (f *Failure) Unwrap() error {
	return f.Err
}

// Invoke executes call. On success it returns the value and true. On any
// failure it logs one diagnostic record and returns the zero value and false,
// which callers must treat as "no value", not as an empty result.
func Invoke[T any](ctx context.Context, operation string, call func(context.Context) (T, error)) (T, bool) {
	v, failure := Try(ctx, operation, call)
	return v, failure == nil
}

// Try is Invoke that also hands back the classified failure.
func Try[T any](ctx context.Context, operation string, call func(context.Context) (T, error)) (T, *Failure) {
	v, err := call(ctx)
	if err == nil {
		return v, nil
	}

	var zero T
	failure := &Failure{Operation: operation, Kind: Classify(ctx, err), Err: err}
	report(ctx, failure)
	return zero, failure
}

// Classify returns the failure kind of err. A call that failed after ctx
// was done is classified as canceled whatever error it returned.
func Classify(ctx context.Context, err error) errors.Kind {
	if err == nil {
		return errors.KindNone
	}
	if ctx != nil && ctx.Err() != nil {
		return errors.KindCanceled
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.KindCanceled
	}
	return errors.KindOf(err)
}

func report(ctx context.Context, f *Failure) {
	if r := recorderFrom(ctx); r != nil {
		r.SoftFailure(f.Operation, f.Kind)
	}

	logger := logging.FromContext(ctx)
	var event *zerolog.Event
	if f.Kind == errors.KindCanceled {
		event = logger.Debug()
	} else {
		event = logger.Warn()
	}
	event = event.
		Str("operation", f.Operation).
		Str("kind", f.Kind.String())

	var (
		authErr     *errors.AuthRedirectError
		nonJSONErr  *errors.NonJSONResponseError
		upstreamErr *errors.UpstreamHTTPError
	)
	switch {
	case stderrors.As(f.Err, &authErr):
		event = event.Str("redirect_uri", authErr.RedirectURI).Str("preview", authErr.Preview)
	case stderrors.As(f.Err, &nonJSONErr):
		event = event.Str("uri", nonJSONErr.URI).Str("preview", nonJSONErr.Preview)
	case stderrors.As(f.Err, &upstreamErr):
		event = event.
			Int("status", upstreamErr.StatusCode).
			Str("method", upstreamErr.Method).
			Str("uri", upstreamErr.URI)
		if upstreamErr.Preview != "" {
			event = event.Str("preview", upstreamErr.Preview)
		}
	}
	event.Err(f.Err).Msg("remote call failed")
}
