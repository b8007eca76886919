// Package probe provides the result types shared by the storage and cache
// probes: per-resource outcomes, best-effort attributes and failure kinds.
package probe

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies why a resource failed.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindAccessDenied
	KindConnection
	KindWriteFailed
	KindReadFailed
	KindMismatch
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not found"
	case KindAccessDenied:
		return "access denied"
	case KindConnection:
		return "connection failed"
	case KindWriteFailed:
		return "write failed"
	case KindReadFailed:
		return "read failed"
	case KindMismatch:
		return "content mismatch"
	default:
		return "error"
	}
}

// Outcome is the pass/fail result of probing one resource.
type Outcome struct {
	Resource string
	Kind     Kind
	Err      error
}

// Pass returns a successful outcome for resource.
func Pass(resource string) Outcome {
	return Outcome{Resource: resource, Kind: KindNone}
}

// Fail returns a failed outcome for resource.
func Fail(resource string, kind Kind, err error) Outcome {
	if kind == KindNone {
		kind = KindOther
	}
	return Outcome{Resource: resource, Kind: kind, Err: err}
}

// Passed reports whether the resource passed every check.
func (o Outcome) Passed() bool {
	return o.Kind == KindNone
}

func (o Outcome) String() string {
	if o.Passed() {
		return o.Resource + ": ok"
	}
	if o.Err == nil {
		return fmt.Sprintf("%s: %s", o.Resource, o.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", o.Resource, o.Kind, o.Err)
}

// Attribute is a descriptive value read best-effort from a resource.
// A failed read never changes the resource outcome.
type Attribute struct {
	Name          string
	Value         string
	Err           error
	NotConfigured bool
}

func (a Attribute) String() string {
	switch {
	case a.NotConfigured:
		return "not configured"
	case a.Err != nil:
		return fmt.Sprintf("unavailable (%v)", a.Err)
	case a.Value == "":
		return "unavailable"
	default:
		return a.Value
	}
}

// NewToken returns a run-unique suffix for probe keys: the unix timestamp of
// now followed by a short random component, so two runs within the same
// second do not collide.
func NewToken(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8])
}
