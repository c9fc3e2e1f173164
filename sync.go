package enginelink

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/pkg/catalog"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/invoke"
	"github.com/agentstation/enginelink/pkg/logging"
	"github.com/agentstation/enginelink/pkg/resources"
)

// SyncOutcome is the overall result of a synchronization run.
type SyncOutcome string

const (
	// SyncCompleted means every category was attempted.
	SyncCompleted SyncOutcome = "completed"
	// SyncCanceled means the run stopped early; applied categories stay applied.
	SyncCanceled SyncOutcome = "canceled"
	// SyncNotConnected means no live connection was available.
	SyncNotConnected SyncOutcome = "not_connected"
)

// CategoryOutcome is the result of synchronizing one category.
type CategoryOutcome string

const (
	// CategoryApplied means the remote source changed.
	CategoryApplied CategoryOutcome = "applied"
	// CategoryUnchanged means the listing matched the remote source.
	CategoryUnchanged CategoryOutcome = "unchanged"
	// CategoryFailed means no query succeeded; the remote source is untouched.
	CategoryFailed CategoryOutcome = "failed"
	// CategorySkipped means the backend has no listing for the category.
	CategorySkipped CategoryOutcome = "skipped"
	// CategoryCanceled means the category was not applied because of cancellation.
	CategoryCanceled CategoryOutcome = "canceled"
)

// CategoryResult reports the synchronization of one category.
type CategoryResult struct {
	Category resources.Category `json:"category" yaml:"category"`
	Outcome  CategoryOutcome    `json:"outcome" yaml:"outcome"`
	Kind     errors.Kind        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Added    int                `json:"added" yaml:"added"`
	Updated  int                `json:"updated" yaml:"updated"`
	Removed  int                `json:"removed" yaml:"removed"`
	// Partial is set when only some of the category's queries succeeded.
	Partial  bool          `json:"partial,omitempty" yaml:"partial,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// SyncReport is the result of SyncAll.
type SyncReport struct {
	Outcome    SyncOutcome      `json:"outcome" yaml:"outcome"`
	StartedAt  utc.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time         `json:"finished_at" yaml:"finished_at"`
	Categories []CategoryResult `json:"categories" yaml:"categories"`
}

// Duration returns the wall time of the run.
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result returns the result of one category.
func (r *SyncReport) Result(category resources.Category) (CategoryResult, bool) {
	for _, result := range r.Categories {
		if result.Category == category {
			return result, true
		}
	}
	return CategoryResult{}, false
}

// Failed returns the categories whose synchronization failed.
func (r *SyncReport) Failed() []CategoryResult {
	var failed []CategoryResult
	for _, result := range r.Categories {
		if result.Outcome == CategoryFailed {
			failed = append(failed, result)
		}
	}
	return failed
}

// String returns a one-line summary.
func (r *SyncReport) String() string {
	counts := make(map[CategoryOutcome]int)
	for _, result := range r.Categories {
		counts[result.Outcome]++
	}
	return fmt.Sprintf("sync %s: %d applied, %d unchanged, %d failed, %d skipped, %d canceled",
		r.Outcome, counts[CategoryApplied], counts[CategoryUnchanged], counts[CategoryFailed],
		counts[CategorySkipped], counts[CategoryCanceled])
}

// SyncAll fetches every category from the connected backend, one category
// at a time in resources.Categories order, and applies each listing to the
// category's remote source. Per-category failures are logged and reported,
// never returned. Cancellation stops the remaining categories; categories
// already applied stay applied.
func (c *Client) SyncAll(ctx context.Context) *SyncReport {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	report := &SyncReport{StartedAt: utc.Now()}
	conn, ok := c.acquire()
	if !ok {
		report.Outcome = SyncNotConnected
		report.FinishedAt = utc.Now()
		return report
	}
	defer conn.active.Done()

	ctx, done := c.callContext(ctx, conn)
	defer done()
	logger := logging.FromContext(ctx)

	report.Outcome = SyncCompleted
	for _, category := range resources.Categories() {
		if ctx.Err() != nil {
			report.Outcome = SyncCanceled
			report.Categories = append(report.Categories, CategoryResult{
				Category: category,
				Outcome:  CategoryCanceled,
				Kind:     errors.KindCanceled,
			})
			continue
		}
		plan, ok := backend.PlanFor(conn.plan, category)
		if !ok || len(plan.Queries) == 0 {
			report.Categories = append(report.Categories, CategoryResult{Category: category, Outcome: CategorySkipped})
			continue
		}

		result := c.syncCategory(ctx, conn, plan)
		if result.Outcome == CategoryCanceled {
			report.Outcome = SyncCanceled
		}
		c.metrics.CategoryFetched(string(category), string(result.Outcome))
		report.Categories = append(report.Categories, result)
	}
	report.FinishedAt = utc.Now()

	c.metrics.SyncFinished(string(report.Outcome), report.Duration())
	logger.Info().
		Str("outcome", string(report.Outcome)).
		Int("failed", len(report.Failed())).
		Dur("duration", report.Duration()).
		Msg("sync finished")

	c.mu.Lock()
	c.lastSync = report
	c.mu.Unlock()
	return report
}

// syncCategory runs the queries of one plan and applies the combined
// listing. A canceled query leaves the category unapplied.
func (c *Client) syncCategory(ctx context.Context, conn *connection, plan backend.CategoryPlan) CategoryResult {
	started := time.Now()
	category := plan.Category
	result := CategoryResult{Category: category}
	ctx = logging.WithCategory(ctx, string(category))

	var (
		records   []resources.Record
		succeeded int
		first     *invoke.Failure
	)
	for _, q := range plan.Queries {
		op := string(category) + "." + q.String()
		names, failure := invoke.Try(ctx, op, func(ctx context.Context) ([]string, error) {
			return conn.backend.ListOptions(ctx, q)
		})
		if failure != nil {
			if failure.Kind == errors.KindCanceled {
				result.Outcome = CategoryCanceled
				result.Kind = errors.KindCanceled
				result.Duration = time.Since(started)
				return result
			}
			if first == nil {
				first = failure
			}
			continue
		}
		succeeded++
		records = catalog.Combine(records, resources.NewRecords(category, resources.Remote, names...), plan.Conflict)
	}

	result.Duration = time.Since(started)
	if succeeded == 0 {
		result.Outcome = CategoryFailed
		result.Kind = first.Kind
		return result
	}
	result.Partial = succeeded < len(plan.Queries)
	if first != nil {
		result.Kind = first.Kind
	}

	// a partial listing must not remove what the failed query reported last time
	additive := plan.Merge == backend.MergeAdditive || result.Partial
	eq := plan.EqualityPolicy()
	set := c.sets[category]

	var cs *catalog.Changeset
	err := c.loop.Submit(context.WithoutCancel(ctx), func() {
		if additive {
			cs = set.remote.AdditiveMerge(records, eq, plan.Conflict)
		} else {
			cs = set.remote.DiffApply(records, eq)
		}
		c.refresh(category)
	})
	if err != nil {
		result.Outcome = CategoryCanceled
		result.Kind = errors.KindCanceled
		return result
	}

	result.Added, result.Updated, result.Removed = len(cs.Added), len(cs.Updated), len(cs.Removed)
	if cs.HasChanges() {
		result.Outcome = CategoryApplied
		logging.FromContext(ctx).Debug().Str("changes", cs.String()).Msg("category synchronized")
	} else {
		result.Outcome = CategoryUnchanged
	}
	return result
}
