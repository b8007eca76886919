// Package report renders probe progress as sectioned, human-readable text
// and tallies per-resource outcomes.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kumasuke/infraprobe/internal/probe"
)

// ErrProbeFailed is returned by Err when at least one resource failed.
var ErrProbeFailed = errors.New("probe failed")

const width = 50

// Reporter writes the report for a single probe run.
type Reporter struct {
	w        io.Writer
	outcomes []probe.Outcome
}

// New creates a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Banner prints a title framed by heavy rules.
func (r *Reporter) Banner(title string) {
	r.rule("=")
	r.printf("%s\n", title)
	r.rule("=")
	r.printf("\n")
}

// Section starts the block for one resource.
func (r *Reporter) Section(name string) {
	r.rule("-")
	r.printf("%s\n", name)
	r.rule("-")
}

// Heading prints a sub-heading preceded by a blank line.
func (r *Reporter) Heading(text string) {
	r.printf("\n%s\n", text)
}

// Blank prints an empty line.
func (r *Reporter) Blank() {
	r.printf("\n")
}

// Step prints an untagged progress line.
func (r *Reporter) Step(format string, args ...any) {
	r.printf(format+"\n", args...)
}

// OK prints a success line.
func (r *Reporter) OK(format string, args ...any) {
	r.printf("✅ "+format+"\n", args...)
}

// Fail prints a failure line.
func (r *Reporter) Fail(format string, args ...any) {
	r.printf("❌ "+format+"\n", args...)
}

// Detail prints an indented line.
func (r *Reporter) Detail(format string, args ...any) {
	r.printf("  "+format+"\n", args...)
}

// Attribute prints one best-effort attribute.
func (r *Reporter) Attribute(a probe.Attribute) {
	r.Detail("%s: %s", a.Name, a.String())
}

// Causes prints a numbered list of likely root causes.
func (r *Reporter) Causes(causes []string) {
	if len(causes) == 0 {
		return
	}
	r.printf("\nLikely causes:\n")
	for i, c := range causes {
		r.Detail("%d. %s", i+1, c)
	}
}

// Record stores the outcome of one resource.
func (r *Reporter) Record(o probe.Outcome) {
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns every recorded outcome in order.
func (r *Reporter) Outcomes() []probe.Outcome {
	return append([]probe.Outcome(nil), r.outcomes...)
}

// Total returns the number of recorded resources.
func (r *Reporter) Total() int {
	return len(r.outcomes)
}

// Succeeded returns the number of resources that passed.
func (r *Reporter) Succeeded() int {
	n := 0
	for _, o := range r.outcomes {
		if o.Passed() {
			n++
		}
	}
	return n
}

// Failed reports whether any recorded resource failed.
func (r *Reporter) Failed() bool {
	return r.Succeeded() < r.Total()
}

// Summary prints the final succeeded/total count for subject.
func (r *Reporter) Summary(subject string) {
	r.rule("=")
	if r.Failed() {
		r.Fail("%s finished with failures (%d/%d succeeded)", subject, r.Succeeded(), r.Total())
	} else {
		r.OK("%s complete (%d/%d succeeded)", subject, r.Succeeded(), r.Total())
	}
	r.rule("=")
}

// Guidance prints static follow-up commands a human can run.
func (r *Reporter) Guidance(lines ...string) {
	if len(lines) == 0 {
		return
	}
	r.printf("\n📝 Next steps:\n")
	for _, l := range lines {
		r.Detail("- %s", l)
	}
}

// Err returns ErrProbeFailed wrapped with the failed resources, or nil when
// every resource passed.
func (r *Reporter) Err() error {
	if !r.Failed() {
		return nil
	}
	var failed []string
	for _, o := range r.outcomes {
		if !o.Passed() {
			failed = append(failed, o.Resource)
		}
	}
	return fmt.Errorf("%w: %d/%d failed (%s)", ErrProbeFailed,
		r.Total()-r.Succeeded(), r.Total(), strings.Join(failed, ", "))
}

func (r *Reporter) rule(ch string) {
	r.printf("%s\n", strings.Repeat(ch, width))
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}
