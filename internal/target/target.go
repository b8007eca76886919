// Package target resolves the concrete resources a probe run checks: bucket
// names from the project naming convention and the cache endpoint from the
// secrets store.
package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kumasuke/infraprobe/internal/config"
	"github.com/rs/zerolog/log"
)

// ErrSecretLookup wraps every failure to fetch or parse the cache secret.
var ErrSecretLookup = errors.New("secret lookup failed")

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var _ SecretsAPI = (*secretsmanager.Client)(nil)

// BucketName returns {project}-{environment}-{role}.
func BucketName(project, environment, role string) string {
	return fmt.Sprintf("%s-%s-%s", project, environment, role)
}

// BucketNames returns the bucket for every configured storage role, in order.
func BucketNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Storage.Roles))
	for _, role := range cfg.Storage.Roles {
		names = append(names, BucketName(cfg.Project, cfg.Environment, role))
	}
	return names
}

// SecretName returns {project}/{environment}/{role}/connection for the cache.
func SecretName(cfg *config.Config) string {
	return fmt.Sprintf("%s/%s/%s/connection", cfg.Project, cfg.Environment, cfg.Cache.Role)
}

// CacheEndpoint is the connection information stored in the cache secret.
type CacheEndpoint struct {
	Host   string
	Port   int
	Engine string
}

// Addr returns host:port.
func (e CacheEndpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

type cacheSecret struct {
	PrimaryEndpoint string      `json:"primary_endpoint"`
	Port            json.Number `json:"port"`
	Engine          string      `json:"engine"`
}

// ResolveCache fetches the cache secret and parses its endpoint. Any failure
// is wrapped in ErrSecretLookup; callers treat it as fatal.
func ResolveCache(ctx context.Context, api SecretsAPI, cfg *config.Config) (CacheEndpoint, error) {
	name := SecretName(cfg)
	log.Debug().Str("secret", name).Msg("Fetching cache connection secret")

	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return CacheEndpoint{}, fmt.Errorf("%w: %s: %w", ErrSecretLookup, name, err)
	}

	payload := aws.ToString(out.SecretString)
	if payload == "" && len(out.SecretBinary) > 0 {
		payload = string(out.SecretBinary)
	}

	ep, err := ParseCacheSecret([]byte(payload), cfg.Cache.DefaultPort)
	if err != nil {
		return CacheEndpoint{}, fmt.Errorf("%w: %s: %w", ErrSecretLookup, name, err)
	}
	return ep, nil
}

// ParseCacheSecret decodes a secret payload with primary_endpoint, port and
// engine fields. Port falls back to defaultPort and engine to "valkey".
// Port may be encoded as a JSON number or a numeric string.
func ParseCacheSecret(payload []byte, defaultPort int) (CacheEndpoint, error) {
	var s cacheSecret
	if err := json.Unmarshal(payload, &s); err != nil {
		return CacheEndpoint{}, fmt.Errorf("invalid secret payload: %w", err)
	}

	if s.PrimaryEndpoint == "" {
		return CacheEndpoint{}, errors.New("secret has no primary_endpoint")
	}

	ep := CacheEndpoint{
		Host:   s.PrimaryEndpoint,
		Port:   defaultPort,
		Engine: s.Engine,
	}
	if ep.Engine == "" {
		ep.Engine = "valkey"
	}
	if s.Port != "" {
		port, err := strconv.Atoi(s.Port.String())
		if err != nil || port <= 0 || port > 65535 {
			return CacheEndpoint{}, fmt.Errorf("invalid port %q", s.Port)
		}
		ep.Port = port
	}
	return ep, nil
}
