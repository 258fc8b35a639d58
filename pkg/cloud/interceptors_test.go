package cloud_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

type recordingLogger struct {
	entries []string
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, "debug:"+msg)
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, "info:"+msg)
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, "warn:"+msg)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, "error:"+msg)
}

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	var calls []string

	chain := cloud.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *cloud.Request) error {
		calls = append(calls, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *cloud.Request) error {
		calls = append(calls, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &cloud.Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	called := false

	chain := cloud.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *cloud.Request) error {
		return boom
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *cloud.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &cloud.Request{})
	require.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestInterceptorChain_NilAndClone(t *testing.T) {
	t.Parallel()

	var nilChain *cloud.InterceptorChain

	require.NoError(t, nilChain.ExecuteRequestInterceptors(context.Background(), &cloud.Request{}))
	require.NoError(t, nilChain.ExecuteResponseInterceptors(context.Background(), &cloud.Request{}, &cloud.Response{}))
	assert.Equal(t, 0, nilChain.Len())

	original := cloud.NewInterceptorChain()
	original.AddRequestInterceptor(cloud.HeaderInterceptor(map[string]string{"X-A": "1"}))

	clone := original.Clone()
	clone.AddRequestInterceptor(cloud.HeaderInterceptor(map[string]string{"X-B": "2"}))

	assert.Equal(t, 1, original.Len())
	assert.Equal(t, 2, clone.Len())
	assert.Equal(t, 0, nilChain.Clone().Len())
}

func TestHeaderAndAuthenticationInterceptors(t *testing.T) {
	t.Parallel()

	chain := cloud.NewInterceptorChain()
	chain.AddRequestInterceptor(cloud.HeaderInterceptor(map[string]string{"X-OpenStack-Request-ID": "req-1"}))
	chain.AddRequestInterceptor(cloud.AuthenticationInterceptor(func(ctx context.Context) (string, error) {
		return "gAAAAAB-token", nil
	}))

	req := &cloud.Request{Method: http.MethodGet, Path: "/servers"}
	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))

	assert.Equal(t, "req-1", req.Headers.Get("X-OpenStack-Request-ID"))
	assert.Equal(t, "gAAAAAB-token", req.Headers.Get(cloud.AuthTokenHeader))

	failing := cloud.AuthenticationInterceptor(func(ctx context.Context) (string, error) {
		return "", cloud.ErrNoCredentials
	})
	require.ErrorIs(t, failing(context.Background(), &cloud.Request{}), cloud.ErrNoCredentials)
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &cloud.Request{Method: http.MethodGet, Path: "/images"}

	require.NoError(t, cloud.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, cloud.LoggingResponseInterceptor(logger)(context.Background(), req, &cloud.Response{StatusCode: 200}))
	require.NoError(t, cloud.LoggingResponseInterceptor(logger)(context.Background(), req, &cloud.Response{StatusCode: 500, Error: errors.New("failed")}))

	assert.Equal(t, []string{"debug:API Request", "debug:API Response", "error:API Response Error"}, logger.entries)
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := cloud.RateLimitInterceptor(1, 1)

	require.NoError(t, interceptor(context.Background(), &cloud.Request{}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := interceptor(ctx, &cloud.Request{})
	require.Error(t, err)
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	collector := cloud.NewMetricsCollector(registry)

	chain := cloud.NewInterceptorChain()
	collector.Attach(chain, "compute/v2")

	for _, status := range []int{200, 200, 404} {
		req := &cloud.Request{Method: http.MethodGet, Path: "/servers"}
		require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), req))
		require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), req, &cloud.Response{StatusCode: status}))
	}

	count, err := testutil.GatherAndCount(registry, "cloudsdk_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(registry, "cloudsdk_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(registry, "cloudsdk_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
