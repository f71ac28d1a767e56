//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/Sternrassler/redmine-client/internal/testutil"
	"github.com/Sternrassler/redmine-client/pkg/client"
	"github.com/Sternrassler/redmine-client/pkg/pagination"
	"github.com/Sternrassler/redmine-client/pkg/redmine"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func newManager(t *testing.T, mock *testutil.MockRedmine, redisClient *redis.Client) *redmine.Manager {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL(), "integration-key")
	cfg.Redis = redisClient

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return redmine.NewManager(c, pagination.Config{PageSize: 10, MaxConcurrency: 3})
}

func TestIntegration_ConditionalRequests(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockRedmine()
	defer mock.Close()

	var served, notModified atomic.Int32
	mock.SetHandler("/issues/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"issue-1-v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		served.Add(1)
		w.Header().Set("ETag", `"issue-1-v1"`)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"issue":{"id":1,"subject":"Cached issue"}}`)
	})

	m := newManager(t, mock, redisClient)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		issue, err := redmine.Get(ctx, m, redmine.Issues, "1", redmine.Options{})
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i, err)
		}
		if issue.Subject != "Cached issue" {
			t.Errorf("Get() #%d subject = %q", i, issue.Subject)
		}
	}

	if served.Load() != 1 {
		t.Errorf("full responses = %d, want 1", served.Load())
	}
	if notModified.Load() != 2 {
		t.Errorf("304 responses = %d, want 2", notModified.Load())
	}
}

func TestIntegration_ListConcurrentWithCache(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockRedmine()
	defer mock.Close()
	mock.AddCollection("issues", "issue", testutil.Records(57), true)

	m := newManager(t, mock, redisClient)
	ctx := context.Background()

	issues, err := redmine.ListConcurrent(ctx, m, redmine.Issues, redmine.Options{})
	if err != nil {
		t.Fatalf("ListConcurrent() error = %v", err)
	}
	if len(issues) != 57 {
		t.Fatalf("len(issues) = %d, want 57", len(issues))
	}
	for i, issue := range issues {
		if issue.ID != i+1 {
			t.Fatalf("issues[%d].ID = %d, want %d", i, issue.ID, i+1)
		}
	}

	keys, err := redisClient.Keys(ctx, "redmine:*").Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 6 {
		t.Errorf("cached pages = %d, want 6", len(keys))
	}
	if mock.PeakInFlight() > 3 {
		t.Errorf("peak in flight = %d, want <= 3", mock.PeakInFlight())
	}
}

func TestIntegration_WriteInvalidatesItem(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockRedmine()
	defer mock.Close()
	mock.AddCollection("issues", "issue", testutil.Records(2), true)

	m := newManager(t, mock, redisClient)
	ctx := context.Background()

	if _, err := redmine.Get(ctx, m, redmine.Issues, "2", redmine.Options{}); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := redmine.Update(ctx, m, redmine.Issues, "2", &redmine.Issue{Notes: "updated"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	keys, err := redisClient.Keys(ctx, "redmine:*:/issues/2.json*").Result()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("cached entries after update = %v, want none", keys)
	}
}
