//go:build integration

package rediscache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/redis/go-redis/v9"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	integrationAddr      string
	integrationContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr := strings.TrimSpace(os.Getenv("REDIS_TEST_ADDR"))
	if addr == "" {
		container, generatedAddr, err := startRedisContainer(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start integration container: %v\n", err)
			os.Exit(1)
		}
		integrationContainer = container
		integrationAddr = generatedAddr
	} else {
		integrationAddr = addr
	}

	exitCode := m.Run()

	if integrationContainer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := integrationContainer.Terminate(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate integration container: %v\n", err)
			if exitCode == 0 {
				exitCode = 1
			}
		}
	}

	os.Exit(exitCode)
}

func startRedisContainer(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", fmt.Errorf("resolve container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", fmt.Errorf("resolve container port: %w", err)
	}
	return container, host + ":" + mappedPort.Port(), nil
}

func TestIntegrationCacheRoundTrip(t *testing.T) {
	// Arrange
	rdb := redis.NewClient(&redis.Options{Addr: integrationAddr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	prefix := fmt.Sprintf("it%d:", time.Now().UnixNano())
	cache, err := New(rdb, Options{Prefix: prefix, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	catalog := resolvers.NewMemoryCatalog(resolvers.Entry{Field: "component", ID: 3, Name: "ui"})
	resolver := cache.Wrap("component", catalog.Field("component"))

	// Act
	first, err := resolver.IndexedValues(ctx, "ui")
	if err != nil {
		t.Fatalf("IndexedValues: %v", err)
	}
	if err := catalog.Delete(ctx, "component", 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	cached, err := resolver.IndexedValues(ctx, "ui")
	if err != nil {
		t.Fatalf("IndexedValues cached: %v", err)
	}
	removed, err := cache.Invalidate(ctx, "component")
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	fresh, err := resolver.IndexedValues(ctx, "ui")

	// Assert
	if err != nil {
		t.Fatalf("IndexedValues after invalidate: %v", err)
	}
	if len(first) != 1 || first[0] != "3" {
		t.Fatalf("unexpected first lookup: %#v", first)
	}
	if len(cached) != 1 || cached[0] != "3" {
		t.Fatalf("expected cached value, got %#v", cached)
	}
	if removed != 1 {
		t.Fatalf("expected 1 invalidated key, got %d", removed)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected empty lookup after invalidate, got %#v", fresh)
	}
}
