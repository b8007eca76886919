package cacheprobe

import (
	"context"
	"strings"

	"github.com/kumasuke/infraprobe/internal/probe"
)

// infoFields are the INFO entries shown in the report, with their labels.
var infoFields = []struct {
	key   string
	label string
}{
	{"redis_version", "Version"},
	{"uptime_in_seconds", "Uptime (seconds)"},
	{"connected_clients", "Connected clients"},
}

// Inspect reads server metadata best-effort. A failed INFO marks every field
// unavailable; a field the server does not report shows N/A.
func (p *Prober) Inspect(ctx context.Context) []probe.Attribute {
	raw, err := p.rdb.Info(ctx).Result()

	fields := parseInfo(raw)
	attrs := make([]probe.Attribute, 0, len(infoFields))
	for _, f := range infoFields {
		attr := probe.Attribute{Name: f.label}
		switch {
		case err != nil:
			attr.Err = err
		case fields[f.key] != "":
			attr.Value = fields[f.key]
		default:
			attr.Value = "N/A"
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// parseInfo turns the INFO reply ("# Section" headers and key:value lines)
// into a flat map.
func parseInfo(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[k] = v
	}
	return fields
}
