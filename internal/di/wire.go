//go:build wireinject
// +build wireinject

package di

import (
	"RegimeDash/pkg/config"
	"RegimeDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideRedisQueue,
		ProvideKafkaProducer,

		// Domain services
		ProvideRuleTable,
		ProvideGuidanceEngine,
		ProvideSegmenter,
		ProvideBackendClient,

		// Use cases and fan-out
		ProvideSnapshotHistory,
		ProvideSnapshotPipeline,
		ProvideSessionController,
		ProvideHub,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
