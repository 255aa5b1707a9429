// Package jobs holds the catalog maintenance batch jobs: the chapter
// auto-linker and the access migrator, plus the runner that locks, records
// and schedules them.
package jobs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	JobLinkChapters  = "link-chapters"
	JobMigrateAccess = "migrate-access"
)

var (
	// ErrItemsFailed is returned when a run finished but some items could
	// not be written. The report lists them.
	ErrItemsFailed = errors.New("one or more items failed")
	// ErrInterrupted is returned when the context ended mid-run.
	ErrInterrupted = errors.New("run interrupted")
)

// Failure is one item a job could not process.
type Failure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// Warning flags an ambiguous title match: several predecessor chapters
// share Key.
type Warning struct {
	CourseID   uuid.UUID   `json:"courseId"`
	VersionID  uuid.UUID   `json:"versionId"`
	Version    int         `json:"version"`
	Key        string      `json:"key"`
	Candidates []uuid.UUID `json:"candidates"`
}

func (w Warning) String() string {
	ids := make([]string, len(w.Candidates))
	for i, id := range w.Candidates {
		ids[i] = id.String()
	}
	return fmt.Sprintf("course %s version %d: %q matches %d chapters (%s)",
		w.CourseID, w.Version, w.Key, len(w.Candidates), strings.Join(ids, ", "))
}

type VersionLinks struct {
	CourseID  uuid.UUID `json:"courseId"`
	VersionID uuid.UUID `json:"versionId"`
	Version   int       `json:"version"`
	Linked    int       `json:"linked"`
}

type LinkReport struct {
	DryRun           bool           `json:"dryRun"`
	Interrupted      bool           `json:"interrupted"`
	CoursesProcessed int            `json:"coursesProcessed"`
	TotalLinked      int            `json:"totalLinked"`
	AlreadyLinked    int            `json:"alreadyLinked"`
	Unmatched        int            `json:"unmatched"`
	SkippedAmbiguous int            `json:"skippedAmbiguous"`
	Versions         []VersionLinks `json:"versions"`
	Warnings         []Warning      `json:"warnings"`
	Failures         []Failure      `json:"failures"`
}

func (r *LinkReport) fail(id uuid.UUID, err error) {
	r.Failures = append(r.Failures, Failure{ID: id, Error: err.Error()})
}

func (r *LinkReport) Err() error {
	return runErr(r.Interrupted, len(r.Failures))
}

func (r *LinkReport) Counts() map[string]int {
	return map[string]int{
		"coursesProcessed": r.CoursesProcessed,
		"totalLinked":      r.TotalLinked,
		"alreadyLinked":    r.AlreadyLinked,
		"unmatched":        r.Unmatched,
		"skippedAmbiguous": r.SkippedAmbiguous,
		"failed":           len(r.Failures),
	}
}

func (r *LinkReport) Summary() string {
	var b strings.Builder
	verb := "linked"
	if r.DryRun {
		verb = "would link"
	}
	for _, v := range r.Versions {
		fmt.Fprintf(&b, "course %s version %d: %s %d chapter(s)\n", v.CourseID, v.Version, verb, v.Linked)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "failed: chapter %s: %s\n", f.ID, f.Error)
	}
	fmt.Fprintf(&b, "%d course(s) processed, %s %d chapter(s) in total, %d already linked, %d unmatched, %d ambiguous skipped, %d failed",
		r.CoursesProcessed, verb, r.TotalLinked, r.AlreadyLinked, r.Unmatched, r.SkippedAmbiguous, len(r.Failures))
	if r.Interrupted {
		b.WriteString(" (interrupted)")
	}
	return b.String()
}

type MigrationReport struct {
	DryRun      bool      `json:"dryRun"`
	Interrupted bool      `json:"interrupted"`
	Scanned     int       `json:"scanned"`
	Created     int       `json:"created"`
	Skipped     int       `json:"skipped"`
	Failures    []Failure `json:"failures"`
}

func (r *MigrationReport) fail(id uuid.UUID, err error) {
	r.Failures = append(r.Failures, Failure{ID: id, Error: err.Error()})
}

func (r *MigrationReport) Err() error {
	return runErr(r.Interrupted, len(r.Failures))
}

func (r *MigrationReport) Counts() map[string]int {
	return map[string]int{
		"scanned": r.Scanned,
		"created": r.Created,
		"skipped": r.Skipped,
		"failed":  len(r.Failures),
	}
}

func (r *MigrationReport) Summary() string {
	var b strings.Builder
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "failed: purchase %s: %s\n", f.ID, f.Error)
	}
	created := "created"
	if r.DryRun {
		created = "would create"
	}
	fmt.Fprintf(&b, "%d purchase(s) scanned, %s %d grant(s), %d skipped, %d failed",
		r.Scanned, created, r.Created, r.Skipped, len(r.Failures))
	if r.Interrupted {
		b.WriteString(" (interrupted)")
	}
	return b.String()
}

func runErr(interrupted bool, failed int) error {
	switch {
	case failed > 0 && interrupted:
		return errors.Wrapf(ErrItemsFailed, "%d item(s) failed before the run was interrupted", failed)
	case failed > 0:
		return errors.Wrapf(ErrItemsFailed, "%d item(s) failed", failed)
	case interrupted:
		return ErrInterrupted
	}
	return nil
}

func sortedKeys(m map[string][]uuid.UUID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
