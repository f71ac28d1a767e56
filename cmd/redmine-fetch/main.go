// redmine-fetch lists, counts or fetches Redmine resources and prints them
// as JSON.
//
// Usage:
//
//	redmine-fetch [flags] <resource>
//
// Settings come from --config, REDMINE_* environment variables and flags,
// in increasing order of precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/Sternrassler/redmine-client/pkg/client"
	"github.com/Sternrassler/redmine-client/pkg/config"
	"github.com/Sternrassler/redmine-client/pkg/logging"
	"github.com/Sternrassler/redmine-client/pkg/redmine"
	"github.com/Sternrassler/redmine-client/pkg/resource"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one parsed invocation.
type command struct {
	id         string
	count      bool
	concurrent bool
	opts       redmine.Options
}

type handler func(ctx context.Context, m *redmine.Manager, cmd command) (any, error)

func execute[T any](d resource.Descriptor[T]) handler {
	return func(ctx context.Context, m *redmine.Manager, cmd command) (any, error) {
		switch {
		case cmd.id != "":
			return redmine.Get(ctx, m, d, cmd.id, cmd.opts)
		case cmd.count:
			n, err := redmine.Count(ctx, m, d, cmd.opts)
			if err != nil {
				return nil, err
			}
			return map[string]int{"total_count": n}, nil
		case cmd.concurrent:
			return redmine.ListConcurrent(ctx, m, d, cmd.opts)
		default:
			return redmine.List(ctx, m, d, cmd.opts)
		}
	}
}

var resources = map[string]handler{
	"issues":         execute(redmine.Issues),
	"projects":       execute(redmine.Projects),
	"users":          execute(redmine.Users),
	"time_entries":   execute(redmine.TimeEntries),
	"versions":       execute(redmine.Versions),
	"trackers":       execute(redmine.Trackers),
	"issue_statuses": execute(redmine.IssueStatuses),
}

func resourceNames() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		project    string
		filters    []string
		cmd        command
	)

	flagSet := pflag.NewFlagSet("redmine-fetch", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")
	flagSet.String("url", "", "Redmine base URL")
	flagSet.String("api-key", "", "API key sent as X-Redmine-API-Key")
	flagSet.String("format", "json", "wire format: json or xml")
	flagSet.StringVar(&project, "project", "", "project id or identifier (required for versions)")
	flagSet.StringArrayVarP(&filters, "filter", "f", nil, "query filter as key=value, repeatable")
	flagSet.StringVar(&cmd.id, "id", "", "fetch a single entity by id")
	flagSet.BoolVar(&cmd.count, "count", false, "print the total count only")
	flagSet.BoolVar(&cmd.concurrent, "concurrent", false, "fetch pages concurrently")
	flagSet.IntVar(&cmd.opts.Window.Offset, "offset", 0, "first item to fetch")
	flagSet.IntVar(&cmd.opts.Window.Limit, "limit", 0, "maximum number of items to fetch (0 = all)")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: redmine-fetch [flags] <resource>\n\nResources: %s\n\nFlags:\n", strings.Join(resourceNames(), ", "))
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected exactly one resource, got %d arguments", flagSet.NArg())
	}
	name := flagSet.Arg(0)
	handle, ok := resources[name]
	if !ok {
		return fmt.Errorf("unknown resource %q (known: %s)", name, strings.Join(resourceNames(), ", "))
	}

	if cmd.opts.Window.Offset < 0 || cmd.opts.Window.Limit < 0 {
		return fmt.Errorf("offset and limit must not be negative")
	}

	query, err := parseFilters(filters)
	if err != nil {
		return err
	}
	if project != "" {
		cmd.opts.PathParams = map[string]string{"project_id": project}
		if name != "versions" {
			query.Set("project_id", project)
		}
	}
	cmd.opts.Query = query

	cfg, err := config.Load(configPath, config.WithFlags(flagSet, map[string]string{
		"server.url":     "url",
		"server.api_key": "api-key",
		"server.format":  "format",
	}))
	if err != nil {
		return err
	}

	logCfg := cfg.Log
	logCfg.Output = stderr
	logCfg.Service = "redmine-fetch"
	logger, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if opts := cfg.RedisOptions(); opts != nil {
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unavailable, caching disabled")
			redisClient = nil
		}
	}

	c, err := client.New(cfg.ClientConfig(redisClient))
	if err != nil {
		return err
	}
	defer c.Close()

	m := redmine.NewManager(c, cfg.PaginationConfig())

	logger.Debug().
		Str("resource", name).
		Bool("concurrent", cmd.concurrent).
		Bool("count", cmd.count).
		Msg("Fetching")

	result, err := handle(ctx, m, cmd)
	if err != nil {
		logFailure(logger, err)
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func parseFilters(filters []string) (url.Values, error) {
	query := url.Values{}
	for _, filter := range filters {
		key, value, ok := strings.Cut(filter, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", filter)
		}
		if key == "offset" || key == "limit" {
			return nil, fmt.Errorf("use --offset and --limit instead of filter %q", key)
		}
		query.Add(key, value)
	}
	return query, nil
}

func logFailure(logger zerolog.Logger, err error) {
	event := logger.Error().Err(err)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		event = event.Str("kind", string(apiErr.Kind)).Int("status", apiErr.StatusCode)
	}
	event.Msg("Fetch failed")
}
