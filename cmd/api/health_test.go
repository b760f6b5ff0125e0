package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthProbeFollowsPing(t *testing.T) {
	var pingErr error
	hs := newHealthServer(func(context.Context) error { return pingErr }, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hs.probe(ctx))
	resp, err := hs.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	pingErr = errors.New("no primary")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hs.probe(ctx))
	resp, err = hs.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
