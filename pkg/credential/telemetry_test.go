package credential

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/internal/sessionstore"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanOutcome(s sdktrace.ReadOnlySpan) string {
	for _, kv := range s.Attributes() {
		if kv.Key == "credential.outcome" {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestSpansRecordOutcomes(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	sessions := sessionstore.NewInMemory(NoopLogger(), sessionstore.Config{})
	defer sessions.Close()

	a, err := New(newFakeAccountStore(), sessions, fastHasher(), WithLogger(NoopLogger()), WithTracer(tp))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Register(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	_, err = a.Register(ctx, "a@x.com", "p1")
	require.Error(t, err)
	_, err = a.Authenticate(ctx, "nobody@x.com", "p1")
	require.Error(t, err)
	_, err = a.Authenticate(ctx, "a@x.com", "nope")
	require.Error(t, err)
	_, err = a.Authenticate(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	require.NoError(t, a.Logout(ctx, "never-issued"))

	type recorded struct {
		name, outcome string
		status        codes.Code
	}
	var got []recorded
	for _, s := range sr.Ended() {
		got = append(got, recorded{s.Name(), spanOutcome(s), s.Status().Code})
	}
	assert.Equal(t, []recorded{
		{"credential.Register", OutcomeSuccess, codes.Unset},
		{"credential.Register", OutcomeDuplicate, codes.Error},
		{"credential.Authenticate", OutcomeUnknownAccount, codes.Error},
		{"credential.Authenticate", OutcomeBadPassword, codes.Error},
		{"credential.Authenticate", OutcomeSuccess, codes.Unset},
		{"credential.Logout", OutcomeSuccess, codes.Unset},
	}, got)
}

func TestFailureLogsCarryTraceAndCause(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logutil.New(logutil.Config{Stdout: &buf})
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	accounts := newFakeAccountStore()
	sessions := sessionstore.NewInMemory(NoopLogger(), sessionstore.Config{})
	defer sessions.Close()

	a, err := New(accounts, sessions, fastHasher(), WithLogger(logger), WithTracer(tp))
	require.NoError(t, err)

	ctx, parent := tp.Tracer("test").Start(context.Background(), "POST /login")
	defer parent.End()

	accounts.failWith = errors.New("disk I/O error")
	_, err = a.Authenticate(ctx, "a@x.com", "p1")
	var pErr *models.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, models.PublicPersistenceMessage, err.Error())

	output := buf.String()
	assert.Contains(t, output, `msg="failed to look up account"`)
	assert.Contains(t, output, "trace_id="+parent.SpanContext().TraceID().String())
	assert.Contains(t, output, "disk I/O error", "the cause is logged even though the caller never sees it")
}

// failingHasher hashes nothing; Verify still works so construction succeeds
// when it is swapped in afterwards.
type failingHasher struct {
	passwd.Hasher
}

func (failingHasher) Hash(string) (string, error) {
	return "", errors.New("entropy source unavailable")
}

func TestRegister_HashFailureLogsCause(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logutil.New(logutil.Config{Stdout: &buf})
	require.NoError(t, err)

	f := newFixture(t)
	f.auth.log = logger
	f.auth.hasher = failingHasher{Hasher: fastHasher()}

	_, err = f.auth.Register(context.Background(), "a@x.com", "p1")
	var pErr *models.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.NotContains(t, err.Error(), "entropy")

	output := buf.String()
	assert.Contains(t, output, `msg="failed to hash password"`)
	assert.Contains(t, output, `err="entropy source unavailable"`)
}
