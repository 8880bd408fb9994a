// Package redis is a catalog backend storing entities and usage summaries in
// Redis hashes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

const defaultPrefix = "lookout"

func init() {
	catalog.Register("redis", func(cfg catalog.Config) (catalog.Catalog, error) {
		if cfg.Redis.Addr == "" {
			return nil, errors.New("redis catalog: missing address")
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return New(client, cfg.Redis.Prefix), nil
	})
}

// Store is a Redis-backed catalog.
//
// Keys:
//
//	<prefix>:dashboards          hash fqn -> id
//	<prefix>:dashboard:<id>      string, request JSON
//	<prefix>:charts              hash fqn -> request JSON
//	<prefix>:usage:<id>          hash {date, count}
//	<prefix>:usage:<id>:daily    hash date -> incremental count
type Store struct {
	client *goredis.Client
	prefix string
}

// New wraps an existing client. An empty prefix uses "lookout".
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Store) PutChart(ctx context.Context, req model.CreateChartRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("redis catalog: marshal chart: %w", err)
	}
	return s.client.HSet(ctx, s.key("charts"), catalog.ChartKey(req), body).Err()
}

func (s *Store) PutDashboard(ctx context.Context, req model.CreateDashboardRequest) (model.DashboardRef, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.DashboardRef{}, fmt.Errorf("redis catalog: marshal dashboard: %w", err)
	}
	fqn := catalog.DashboardKey(req)
	if err := s.client.HSetNX(ctx, s.key("dashboards"), fqn, uuid.NewString()).Err(); err != nil {
		return model.DashboardRef{}, err
	}
	ref, err := s.Resolve(ctx, fqn)
	if err != nil {
		return model.DashboardRef{}, err
	}
	if err := s.client.Set(ctx, s.key("dashboard", ref.ID), body, 0).Err(); err != nil {
		return model.DashboardRef{}, err
	}
	return ref, nil
}

func (s *Store) Resolve(ctx context.Context, fqn string) (model.DashboardRef, error) {
	id, err := s.client.HGet(ctx, s.key("dashboards"), fqn).Result()
	if errors.Is(err, goredis.Nil) {
		return model.DashboardRef{}, fmt.Errorf("resolve %q: %w", fqn, usage.ErrDashboardNotFound)
	}
	if err != nil {
		return model.DashboardRef{}, err
	}
	return model.DashboardRef{ID: id, FQN: fqn}, nil
}

func (s *Store) known(ctx context.Context, ref model.DashboardRef) error {
	n, err := s.client.Exists(ctx, s.key("dashboard", ref.ID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("dashboard %q: %w", ref.FQN, usage.ErrDashboardNotFound)
	}
	return nil
}

// PersistedUsage fails with usage.ErrDashboardNotFound for an unknown
// dashboard, and returns a nil summary when the usage hash is empty.
func (s *Store) PersistedUsage(ctx context.Context, ref model.DashboardRef) (*model.PersistedUsageSummary, error) {
	if err := s.known(ctx, ref); err != nil {
		return nil, err
	}
	vals, err := s.client.HGetAll(ctx, s.key("usage", ref.ID)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	date, err := civil.ParseDate(vals["date"])
	if err != nil {
		return nil, fmt.Errorf("redis catalog: summary date %q: %w", vals["date"], err)
	}
	count, err := strconv.ParseInt(vals["count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis catalog: summary count %q: %w", vals["count"], err)
	}
	return &model.PersistedUsageSummary{Date: date, DailyCount: count}, nil
}

func (s *Store) RecordUsage(ctx context.Context, ev model.UsageEvent) error {
	if err := s.known(ctx, ev.Dashboard); err != nil {
		return err
	}
	summary := ev.Summary()
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.key("usage", ev.Dashboard.ID),
			"date", summary.Date.String(),
			"count", summary.DailyCount)
		pipe.HSet(ctx, s.key("usage", ev.Dashboard.ID, "daily"), ev.Date.String(), ev.Count)
		return nil
	})
	return err
}

func (s *Store) Close() error {
	return s.client.Close()
}
