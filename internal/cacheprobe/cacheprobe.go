// Package cacheprobe verifies a Redis-compatible (Valkey) cache cluster:
// liveness, server info, and scalar/list/hash round trips on throwaway keys.
package cacheprobe

import (
	"context"
	"fmt"
	"time"

	"github.com/kumasuke/infraprobe/internal/config"
	"github.com/kumasuke/infraprobe/internal/probe"
	"github.com/kumasuke/infraprobe/internal/report"
	"github.com/kumasuke/infraprobe/internal/target"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var connectionCauses = []string{
	"Security group or firewall does not allow access to the cluster port",
	"Network path problem (the cluster is only reachable from inside its VPC)",
	"The cluster is still being created or is unavailable",
}

var listItems = []any{"item1", "item2", "item3"}

var hashFields = map[string]any{"field1": "value1", "field2": "value2"}

// Keys holds the throwaway keys used by one probe run.
type Keys struct {
	Scalar string
	List   string
	Hash   string
}

// NewKeys derives the probe keys from a run token.
func NewKeys(token string) Keys {
	return Keys{
		Scalar: "test:valkey:connection:" + token,
		List:   "test:list:" + token,
		Hash:   "test:hash:" + token,
	}
}

// All returns every key in creation order.
func (k Keys) All() []string {
	return []string{k.Scalar, k.List, k.Hash}
}

// NewClient creates a client for ep with a bounded dial timeout and no
// automatic retries.
func NewClient(ep target.CacheEndpoint, cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        ep.Addr(),
		DialTimeout: cfg.ConnectTimeout,
		MaxRetries:  -1,
	})
}

// Prober runs the cache probe against a single endpoint.
type Prober struct {
	rdb redis.Cmdable
	ttl time.Duration
	rep *report.Reporter
	now func() time.Time
}

// New creates a Prober issuing commands through rdb.
func New(rdb redis.Cmdable, cfg config.CacheConfig, rep *report.Reporter) *Prober {
	return &Prober{
		rdb: rdb,
		ttl: cfg.ValueTTL,
		rep: rep,
		now: time.Now,
	}
}

// Run prints the connection details for ep, probes it and prints the
// summary. It returns report.ErrProbeFailed when the probe failed.
func Run(ctx context.Context, rdb redis.Cmdable, ep target.CacheEndpoint, cfg config.CacheConfig, rep *report.Reporter) error {
	rep.Step("Connection info:")
	rep.Detail("Engine: %s", ep.Engine)
	rep.Detail("Endpoint: %s", ep.Host)
	rep.Detail("Port: %d", ep.Port)
	rep.Blank()
	rep.Step("🔌 Testing %s connection...", ep.Engine)

	outcome := New(rdb, cfg, rep).Probe(ctx, ep.Addr())
	log.Debug().Str("endpoint", ep.Addr()).Bool("passed", outcome.Passed()).Str("kind", outcome.Kind.String()).Msg("Cache probed")
	rep.Record(outcome)
	rep.Blank()

	rep.Summary("Cache test")
	rep.Guidance(
		fmt.Sprintf("Manual check: valkey-cli -h %s -p %d ping", ep.Host, ep.Port),
		"Cluster status: aws elasticache describe-replication-groups",
	)
	return rep.Err()
}

// Probe checks liveness, reads server info, runs the three round trips and
// deletes every key it created.
func (p *Prober) Probe(ctx context.Context, resource string) probe.Outcome {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return p.fail(resource, err)
	}
	p.rep.OK("Connected: PING -> PONG")

	p.rep.Heading("📊 Server info:")
	for _, attr := range p.Inspect(ctx) {
		p.rep.Attribute(attr)
	}

	p.rep.Heading("🧪 Read/write test:")
	keys := NewKeys(probe.NewToken(p.now()))
	defer p.cleanup(ctx, keys)

	var firstErr error
	kind := probe.KindNone
	for _, step := range []func(context.Context, Keys) (probe.Kind, error){
		p.scalar,
		p.list,
		p.hash,
	} {
		k, err := step(ctx, keys)
		if err != nil && firstErr == nil {
			kind, firstErr = k, err
		}
	}

	if firstErr != nil {
		if probe.IsConnectionError(firstErr) {
			p.rep.Causes(connectionCauses)
			kind = probe.KindConnection
		}
		return probe.Fail(resource, kind, firstErr)
	}
	return probe.Pass(resource)
}

func (p *Prober) fail(resource string, err error) probe.Outcome {
	if probe.IsConnectionError(err) {
		p.rep.Fail("Connection error: %v", err)
		p.rep.Causes(connectionCauses)
		return probe.Fail(resource, probe.KindConnection, err)
	}
	p.rep.Fail("Error: %v", err)
	return probe.Fail(resource, probe.KindOther, err)
}

// scalar writes a value with a finite TTL and reads it back.
func (p *Prober) scalar(ctx context.Context, keys Keys) (probe.Kind, error) {
	value := "test-value-" + p.now().Format(time.RFC3339Nano)

	if err := p.rdb.Set(ctx, keys.Scalar, value, p.ttl).Err(); err != nil {
		p.rep.Fail("Write failed: %s: %v", keys.Scalar, err)
		return probe.KindWriteFailed, err
	}
	p.rep.OK("Write succeeded: %s = %s (TTL %s)", keys.Scalar, value, p.ttl)

	got, err := p.rdb.Get(ctx, keys.Scalar).Result()
	if err != nil {
		p.rep.Fail("Read failed: %s: %v", keys.Scalar, err)
		return probe.KindReadFailed, err
	}
	if got != value {
		p.rep.Fail("Read mismatch: expected=%s, actual=%s", value, got)
		return probe.KindMismatch, fmt.Errorf("read %q, expected %q", got, value)
	}
	p.rep.OK("Read succeeded: %s", got)
	return probe.KindNone, nil
}

// list pushes three items and checks the list length.
func (p *Prober) list(ctx context.Context, keys Keys) (probe.Kind, error) {
	if err := p.rdb.LPush(ctx, keys.List, listItems...).Err(); err != nil {
		p.rep.Fail("List push failed: %s: %v", keys.List, err)
		return probe.KindWriteFailed, err
	}

	n, err := p.rdb.LLen(ctx, keys.List).Result()
	if err != nil {
		p.rep.Fail("List length failed: %s: %v", keys.List, err)
		return probe.KindReadFailed, err
	}
	if n != int64(len(listItems)) {
		p.rep.Fail("List length mismatch: %s (expected %d, actual %d)", keys.List, len(listItems), n)
		return probe.KindMismatch, fmt.Errorf("list length %d, expected %d", n, len(listItems))
	}
	p.rep.OK("List test succeeded: %s (length: %d)", keys.List, n)
	return probe.KindNone, nil
}

// hash sets two fields and reads one back.
func (p *Prober) hash(ctx context.Context, keys Keys) (probe.Kind, error) {
	if err := p.rdb.HSet(ctx, keys.Hash, hashFields).Err(); err != nil {
		p.rep.Fail("Hash set failed: %s: %v", keys.Hash, err)
		return probe.KindWriteFailed, err
	}

	got, err := p.rdb.HGet(ctx, keys.Hash, "field1").Result()
	if err != nil {
		p.rep.Fail("Hash read failed: %s.field1: %v", keys.Hash, err)
		return probe.KindReadFailed, err
	}
	if want := hashFields["field1"]; got != want {
		p.rep.Fail("Hash mismatch: %s.field1 (expected %v, actual %s)", keys.Hash, want, got)
		return probe.KindMismatch, fmt.Errorf("hash field1 %q, expected %v", got, want)
	}
	p.rep.OK("Hash test succeeded: %s.field1 = %s", keys.Hash, got)
	return probe.KindNone, nil
}

// cleanup deletes every probe key in a single command, whatever the
// sub-probes returned. It runs even after the caller's context is cancelled.
func (p *Prober) cleanup(ctx context.Context, keys Keys) {
	if err := p.rdb.Del(context.WithoutCancel(ctx), keys.All()...).Err(); err != nil {
		log.Debug().Err(err).Strs("keys", keys.All()).Msg("Failed to delete probe keys")
		return
	}
	p.rep.OK("Test data deleted")
}
