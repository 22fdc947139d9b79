// Package testing starts the backing services of the chunker in containers for integration tests.
package testing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alqutdigital/doc-chunker/internal/config"
)

// ContainerConfig holds configuration for test containers.
type ContainerConfig struct {
	RedisImage     string
	MinIOImage     string
	MinIOUser      string
	MinIOPassword  string
	NATSImage      string
	BucketName     string
	StartupTimeout time.Duration
}

// DefaultContainerConfig returns a default container configuration.
func DefaultContainerConfig() ContainerConfig {
	return ContainerConfig{
		RedisImage:     "redis:7-alpine",
		MinIOImage:     "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		MinIOUser:      "minioadmin",
		MinIOPassword:  "minioadmin",
		NATSImage:      "nats:2.10-alpine",
		BucketName:     "rag-chunks-test",
		StartupTimeout: 60 * time.Second,
	}
}

// TestContainers holds running test containers and the configuration pointing at them.
type TestContainers struct {
	RedisContainer *tcredis.RedisContainer
	MinIOContainer *tcminio.MinioContainer
	NATSContainer  *tcnats.NATSContainer

	// Config is filled in as containers start.
	Config config.Config

	config ContainerConfig
	logger *slog.Logger
}

// NewTestContainers prepares a container set. Nothing is started until a Start method is called.
func NewTestContainers(config ContainerConfig, logger *slog.Logger) *TestContainers {
	if logger == nil {
		logger = slog.Default()
	}
	return &TestContainers{
		config: config,
		logger: logger.With("component", "testcontainers"),
	}
}

// StartRedis starts a Redis container and points Config.Redis at it.
func (tc *TestContainers) StartRedis(ctx context.Context) error {
	tc.logger.Info("starting Redis container", "image", tc.config.RedisImage)

	container, err := tcredis.Run(ctx,
		tc.config.RedisImage,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(tc.config.StartupTimeout),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to start redis container: %w", err)
	}
	tc.RedisContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return fmt.Errorf("failed to get redis port: %w", err)
	}

	tc.Config.Redis = config.RedisConfig{
		Host:     host,
		Port:     port.Int(),
		CacheTTL: time.Hour,
	}
	tc.logger.Info("Redis container started", "host", host, "port", port.Int())
	return nil
}

// StartMinIO starts a MinIO container and points Config.Storage at it.
func (tc *TestContainers) StartMinIO(ctx context.Context) error {
	tc.logger.Info("starting MinIO container", "image", tc.config.MinIOImage)

	container, err := tcminio.Run(ctx,
		tc.config.MinIOImage,
		tcminio.WithUsername(tc.config.MinIOUser),
		tcminio.WithPassword(tc.config.MinIOPassword),
	)
	if err != nil {
		return fmt.Errorf("failed to start minio container: %w", err)
	}
	tc.MinIOContainer = container

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get minio endpoint: %w", err)
	}

	tc.Config.Storage = config.StorageConfig{
		Endpoint:        endpoint,
		AccessKeyID:     container.Username,
		SecretAccessKey: container.Password,
		BucketName:      tc.config.BucketName,
		Region:          "us-east-1",
	}
	tc.logger.Info("MinIO container started", "endpoint", endpoint)
	return nil
}

// StartNATS starts a NATS container with JetStream and points Config.NATS at it.
func (tc *TestContainers) StartNATS(ctx context.Context) error {
	tc.logger.Info("starting NATS container", "image", tc.config.NATSImage)

	container, err := tcnats.Run(ctx, tc.config.NATSImage)
	if err != nil {
		return fmt.Errorf("failed to start nats container: %w", err)
	}
	tc.NATSContainer = container

	url, err := container.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get nats url: %w", err)
	}

	tc.Config.NATS = config.NATSConfig{URL: url, ClientName: "chunker-test"}
	tc.logger.Info("NATS container started", "url", url)
	return nil
}

// StartAll starts every container.
func (tc *TestContainers) StartAll(ctx context.Context) error {
	if err := tc.StartRedis(ctx); err != nil {
		return err
	}
	if err := tc.StartMinIO(ctx); err != nil {
		return err
	}
	return tc.StartNATS(ctx)
}

// Cleanup terminates all running containers.
func (tc *TestContainers) Cleanup(ctx context.Context) error {
	tc.logger.Info("cleaning up test containers")

	var errs []error
	if tc.NATSContainer != nil {
		if err := tc.NATSContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate nats: %w", err))
		}
	}
	if tc.MinIOContainer != nil {
		if err := tc.MinIOContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate minio: %w", err))
		}
	}
	if tc.RedisContainer != nil {
		if err := tc.RedisContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate redis: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	tc.logger.Info("test containers cleaned up")
	return nil
}
