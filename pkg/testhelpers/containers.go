// Package testhelpers starts throwaway storage containers for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/greenthumb-app/greenthumb/pkg/config"
)

const (
	PostgresImage = "postgres:16-alpine"
	RedisImage    = "redis:7-alpine"
)

var (
	sharedPostgres     *config.PostgresConfig
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error

	sharedRedis     *config.RedisConfig
	sharedRedisOnce sync.Once
	sharedRedisErr  error
)

// GetPostgres returns connection settings for a PostgreSQL container shared
// by every test in the run.
func GetPostgres(t *testing.T) *config.PostgresConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgres, sharedPostgresErr = startPostgres()
	})
	if sharedPostgresErr != nil {
		t.Fatalf("Failed to start postgres container: %v", sharedPostgresErr)
	}

	cfg := *sharedPostgres
	return &cfg
}

// GetRedis returns connection settings for a Redis container shared by every
// test in the run.
func GetRedis(t *testing.T) *config.RedisConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedRedisOnce.Do(func() {
		sharedRedis, sharedRedisErr = startRedis()
	})
	if sharedRedisErr != nil {
		t.Fatalf("Failed to start redis container: %v", sharedRedisErr)
	}

	cfg := *sharedRedis
	return &cfg
}

func startPostgres() (*config.PostgresConfig, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "greenthumb_test",
			"POSTGRES_USER":     "greenthumb",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The server restarts once after init; wait for the second ready line.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	host, port, err := start(ctx, req, "5432")
	if err != nil {
		return nil, err
	}

	return &config.PostgresConfig{
		Host:           host,
		Port:           port,
		User:           "greenthumb",
		Password:       "test_password",
		Database:       "greenthumb_test",
		SSLMode:        "disable",
		MaxConnections: 5,
	}, nil
}

func startRedis() (*config.RedisConfig, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        RedisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	host, port, err := start(ctx, req, "6379")
	if err != nil {
		return nil, err
	}

	return &config.RedisConfig{Host: host, Port: port}, nil
}

func start(ctx context.Context, req testcontainers.ContainerRequest, containerPort string) (string, int, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to start %s: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, containerPort)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get container port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return "", 0, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}
	return host, port, nil
}
