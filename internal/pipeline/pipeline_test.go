package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/internal/catalog/memory"
	"github.com/crimson-sun/lookout/internal/connector"
	"github.com/crimson-sun/lookout/internal/filter"
	"github.com/crimson-sun/lookout/internal/mapping"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

// --- mocks ---

// mockConnector serves a fixed dashboard listing. View counts come from
// counts; ids in failOn report the source as unavailable.
type mockConnector struct {
	mu         sync.Mutex
	dashboards []model.Dashboard
	counts     map[string]int64
	failOn     map[string]bool
	listErr    error
	lists      int
}

func (m *mockConnector) Dashboards(_ context.Context, _ connector.ConnectorConfig) ([]model.Dashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.dashboards, nil
}

func (m *mockConnector) ViewCount(_ context.Context, _ connector.ConnectorConfig, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn[id] {
		return 0, connector.Unavailable("mock", errors.New("connection reset"))
	}
	return m.counts[id], nil
}

func (m *mockConnector) setCount(id string, n int64) {
	m.mu.Lock()
	m.counts[id] = n
	m.mu.Unlock()
}

func (m *mockConnector) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

// mockOutput collects results.
type mockOutput struct {
	mu      sync.Mutex
	results []usage.Result
	closed  bool
}

func (m *mockOutput) Write(_ context.Context, r usage.Result) error {
	m.mu.Lock()
	m.results = append(m.results, r)
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) Results() []usage.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]usage.Result, len(m.results))
	copy(cp, m.results)
	return cp
}

func (m *mockOutput) byDashboard() map[string]usage.Result {
	out := make(map[string]usage.Result)
	for _, r := range m.Results() {
		out[r.Dashboard] = r
	}
	return out
}

// notFoundCatalog forgets every dashboard on Resolve.
type notFoundCatalog struct {
	*memory.Catalog
}

func (c notFoundCatalog) Resolve(_ context.Context, fqn string) (model.DashboardRef, error) {
	return model.DashboardRef{}, fmt.Errorf("resolve %q: %w", fqn, usage.ErrDashboardNotFound)
}

// --- helpers ---

var today = civil.Date{Year: 2024, Month: 3, Day: 15}

func sales() model.Dashboard {
	return model.Dashboard{
		ID:   "7",
		Name: "Sales",
		Charts: []model.Chart{
			{ID: "70", Name: "Revenue", ChartType: "Line"},
			{ID: "71", Name: "Scratch copy", ChartType: "Table"},
		},
	}
}

func newFixture(dashboards ...model.Dashboard) (*mockConnector, *memory.Catalog, *mockOutput) {
	conn := &mockConnector{dashboards: dashboards, counts: map[string]int64{}, failOn: map[string]bool{}}
	for _, d := range dashboards {
		conn.counts[d.ID] = 10
	}
	return conn, memory.New(), &mockOutput{}
}

func newPipeline(conn *mockConnector, cat *memory.Catalog, out *mockOutput, opts Options) *Pipeline {
	if opts.Service == "" {
		opts.Service = "metabase"
	}
	return New(conn, connector.ConnectorConfig{Provider: "mock"}, cat, out, opts)
}

// seed records a summary for d as if an earlier run had stored it.
func seed(t *testing.T, cat *memory.Catalog, d model.Dashboard, s model.PersistedUsageSummary) {
	t.Helper()
	req := mapping.DashboardRequest("metabase", d, nil)
	ref, err := cat.PutDashboard(context.Background(), req)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	cat.SetSummary(ref, s)
}

func onlyResult(t *testing.T, out *mockOutput) usage.Result {
	t.Helper()
	results := out.Results()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	return results[0]
}

// --- tests ---

func TestRun_FirstRunEmitsFullCount(t *testing.T) {
	conn, cat, out := newFixture(sales())
	p := newPipeline(conn, cat, out, Options{})

	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := onlyResult(t, out)
	if r.Outcome.Kind != usage.KindEvent || r.Outcome.Count != 10 || r.Outcome.Date != today {
		t.Fatalf("unexpected outcome: %+v", r.Outcome)
	}
	if r.Dashboard != "metabase.7" || r.SourceID != "7" || r.Ref.ID == "" {
		t.Errorf("unexpected result identity: %+v", r)
	}
	if sum.Total != 1 || sum.Events != 1 || !sum.OK() || sum.RunID == "" {
		t.Errorf("unexpected summary: %+v", sum)
	}

	events := cat.Events()
	if len(events) != 1 || events[0].Count != 10 || events[0].Cumulative != 10 {
		t.Fatalf("expected one recorded event of 10, got %+v", events)
	}
	if cat.Charts() != 2 {
		t.Errorf("expected 2 charts ingested, got %d", cat.Charts())
	}
}

func TestRun_SameDayRerunIsNoEvent(t *testing.T) {
	conn, cat, out := newFixture(sales())
	p := newPipeline(conn, cat, out, Options{})

	if _, err := p.Run(context.Background(), today); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	results := out.Results()
	if len(results) != 2 || results[1].Outcome.Kind != usage.KindNoEvent {
		t.Fatalf("expected second run to yield NoEvent, got %+v", results)
	}
	if sum.NoEvents != 1 {
		t.Errorf("expected 1 no-event in summary, got %+v", sum)
	}
	if len(cat.Events()) != 1 {
		t.Errorf("rerun must not record again, got %d events", len(cat.Events()))
	}
}

func TestRun_SameDayZeroIsRecorded(t *testing.T) {
	conn, cat, out := newFixture(sales())
	seed(t, cat, sales(), model.PersistedUsageSummary{Date: today, DailyCount: 0})
	p := newPipeline(conn, cat, out, Options{})

	if _, err := p.Run(context.Background(), today); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := onlyResult(t, out)
	if r.Outcome.Kind != usage.KindEvent || r.Outcome.Count != 10 {
		t.Fatalf("expected Event(10), got %+v", r.Outcome)
	}
}

func TestRun_NextDayEmitsDifference(t *testing.T) {
	conn, cat, out := newFixture(sales())
	seed(t, cat, sales(), model.PersistedUsageSummary{Date: today.AddDays(-1), DailyCount: 5})
	p := newPipeline(conn, cat, out, Options{})

	if _, err := p.Run(context.Background(), today); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := onlyResult(t, out)
	if r.Outcome.Kind != usage.KindEvent || r.Outcome.Count != 5 || r.Outcome.Cumulative != 10 {
		t.Fatalf("expected Event(5), got %+v", r.Outcome)
	}

	// The stored summary now carries the cumulative count for today.
	ref, err := cat.Resolve(context.Background(), "metabase.7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	s, err := cat.PersistedUsage(context.Background(), ref)
	if err != nil || s == nil {
		t.Fatalf("PersistedUsage: %v %v", s, err)
	}
	if s.Date != today || s.DailyCount != 10 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestRun_DecreasingCountIsAnomaly(t *testing.T) {
	conn, cat, out := newFixture(sales())
	seed(t, cat, sales(), model.PersistedUsageSummary{Date: today.AddDays(-1), DailyCount: 1000})
	p := newPipeline(conn, cat, out, Options{})

	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r := onlyResult(t, out)
	ae, ok := r.Outcome.Anomaly()
	if !ok {
		t.Fatalf("expected anomaly, got %+v", r.Outcome)
	}
	if ae.Previous != 1000 || ae.Current != 10 {
		t.Errorf("unexpected anomaly detail: %+v", ae)
	}
	if len(cat.Events()) != 0 {
		t.Errorf("anomaly must not record usage, got %d events", len(cat.Events()))
	}
	if sum.Anomalies != 1 || len(sum.Problems) != 1 || sum.OK() {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestRun_SourceFailureDoesNotStopBatch(t *testing.T) {
	broken := model.Dashboard{ID: "8", Name: "Broken"}
	conn, cat, out := newFixture(sales(), broken)
	conn.failOn["8"] = true
	p := newPipeline(conn, cat, out, Options{})

	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.byDashboard()
	if len(got) != 2 {
		t.Fatalf("expected a result per dashboard, got %d", len(got))
	}
	if got["metabase.7"].Outcome.Kind != usage.KindEvent {
		t.Errorf("healthy dashboard: %+v", got["metabase.7"].Outcome)
	}
	f := got["metabase.8"].Outcome
	if f.Kind != usage.KindFailure || !errors.Is(f.Err, usage.ErrSourceUnavailable) {
		t.Errorf("broken dashboard: %+v", f)
	}
	if sum.Failures != 1 || sum.Events != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestRun_LookupFailure(t *testing.T) {
	conn, cat, out := newFixture(sales())
	p := New(conn, connector.ConnectorConfig{Provider: "mock"}, notFoundCatalog{cat}, out, Options{Service: "metabase"})

	if _, err := p.Run(context.Background(), today); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := onlyResult(t, out)
	if r.Outcome.Kind != usage.KindFailure || !usage.IsLookupFailure(r.Outcome.Err) {
		t.Fatalf("expected lookup failure, got %+v", r.Outcome)
	}
}

func TestRun_ListingFailureAborts(t *testing.T) {
	conn, cat, out := newFixture()
	conn.listErr = errors.New("unauthorized")
	p := newPipeline(conn, cat, out, Options{})

	if _, err := p.Run(context.Background(), today); err == nil {
		t.Fatal("expected error when listing fails")
	}
	if len(out.Results()) != 0 {
		t.Errorf("expected no results, got %d", len(out.Results()))
	}
}

func TestRun_Filters(t *testing.T) {
	conn, cat, out := newFixture(sales(), model.Dashboard{ID: "9", Name: "Sandbox"})
	dash, err := filter.New(nil, []string{"^Sandbox$"})
	if err != nil {
		t.Fatal(err)
	}
	charts, err := filter.New(nil, []string{"(?i)scratch"})
	if err != nil {
		t.Fatal(err)
	}
	p := newPipeline(conn, cat, out, Options{Dashboards: dash, Charts: charts})

	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 1 {
		t.Errorf("expected 1 dashboard after filtering, got %d", sum.Total)
	}
	r := onlyResult(t, out)
	if r.Dashboard != "metabase.7" {
		t.Errorf("unexpected dashboard: %s", r.Dashboard)
	}
	if cat.Charts() != 1 {
		t.Errorf("expected 1 chart after filtering, got %d", cat.Charts())
	}
}

func TestRun_SkipUsage(t *testing.T) {
	conn, cat, out := newFixture(sales())
	p := newPipeline(conn, cat, out, Options{SkipUsage: true})

	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Results()) != 0 || len(cat.Events()) != 0 {
		t.Errorf("usage must not be reconciled with SkipUsage")
	}
	if sum.Total != 1 || cat.Charts() != 2 {
		t.Errorf("entities should still be ingested: %+v charts=%d", sum, cat.Charts())
	}
	if _, err := cat.Resolve(context.Background(), "metabase.7"); err != nil {
		t.Errorf("dashboard not ingested: %v", err)
	}
}

func TestRun_BoundedWorkersReportEveryDashboard(t *testing.T) {
	var ds []model.Dashboard
	for i := 0; i < 50; i++ {
		ds = append(ds, model.Dashboard{ID: fmt.Sprint(i), Name: fmt.Sprintf("Dash %d", i)})
	}
	conn, cat, out := newFixture(ds...)
	p := newPipeline(conn, cat, out, Options{Workers: 3})

	sum, err := p.Run(context.Background(), today)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 50 || sum.Events != 50 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if len(out.byDashboard()) != 50 {
		t.Errorf("expected 50 distinct results, got %d", len(out.byDashboard()))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	conn, cat, out := newFixture(sales())
	p := newPipeline(conn, cat, out, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, today); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStream_RunsUntilCancelled(t *testing.T) {
	conn, cat, out := newFixture(sales())
	p := newPipeline(conn, cat, out, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	day := today
	clock := func() civil.Date {
		mu.Lock()
		defer mu.Unlock()
		d := day
		day = day.AddDays(1)
		return d
	}

	errCh := make(chan error, 1)
	go func() { errCh <- p.Stream(ctx, 20*time.Millisecond, clock) }()

	deadline := time.After(5 * time.Second)
	for len(out.Results()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for runs, got %d results", len(out.Results()))
		case <-time.After(10 * time.Millisecond):
		}
		conn.setCount("7", int64(10+len(out.Results())))
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected stream error: %v", err)
	}
	for i, r := range out.Results() {
		if r.Outcome.Kind != usage.KindEvent {
			t.Errorf("run %d: expected Event, got %s", i, r.Outcome.Kind)
		}
	}
	if conn.listCount() < 3 {
		t.Errorf("expected at least 3 listings, got %d", conn.listCount())
	}
}

func TestStream_ListingErrorKeepsGoing(t *testing.T) {
	conn, cat, out := newFixture()
	conn.listErr = errors.New("bad gateway")
	p := newPipeline(conn, cat, out, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := p.Stream(ctx, 10*time.Millisecond, func() civil.Date { return today })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if conn.listCount() < 2 {
		t.Errorf("expected repeated attempts, got %d", conn.listCount())
	}
}

func TestClose(t *testing.T) {
	conn, cat, out := newFixture()
	p := newPipeline(conn, cat, out, Options{})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !out.closed {
		t.Error("output not closed")
	}
}
