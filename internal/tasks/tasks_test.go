package tasks

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/resolver"
	"github.com/desertthunder/spotfetch/internal/shared"
)

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

type countingHeaders struct {
	calls int
}

func (h *countingHeaders) Headers() map[string]string {
	h.calls++
	return map[string]string{"User-Agent": strings.Repeat("x", h.calls)}
}

// mockLocalizer returns a scripted error per call for each track name; once the script
// runs out the download succeeds.
type mockLocalizer struct {
	script   map[string][]error
	calls    map[string]int
	headers  []map[string]string
	native   bool
	url      string
	urlErr   error
	cancelOn string
	cancel   context.CancelFunc
}

func newMockLocalizer() *mockLocalizer {
	return &mockLocalizer{script: map[string][]error{}, calls: map[string]int{}, native: true, url: "https://cdn.example/a"}
}

func (m *mockLocalizer) Fetch(ctx context.Context, track models.TrackDescriptor, headers map[string]string) (*resolver.Download, error) {
	n := m.calls[track.Name]
	m.calls[track.Name]++
	m.headers = append(m.headers, headers)

	if m.cancel != nil && track.Name == m.cancelOn {
		m.cancel()
	}
	if errs := m.script[track.Name]; n < len(errs) && errs[n] != nil {
		return nil, errs[n]
	}
	return &resolver.Download{Path: "/music/" + track.Name + ".mp3", Native: m.native}, nil
}

func (m *mockLocalizer) ResolveURL(ctx context.Context, track models.TrackDescriptor) (string, error) {
	m.calls[track.Name]++
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return m.url, nil
}

type mockRecorder struct {
	recorded []string
	existing map[string]string
	err      error
}

func (m *mockRecorder) Record(track models.TrackDescriptor, filePath string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.recorded = append(m.recorded, filePath)
	return true, nil
}

func (m *mockRecorder) Find(track models.TrackDescriptor) (models.LedgerEntry, bool) {
	path, ok := m.existing[track.Name]
	if !ok {
		return models.LedgerEntry{}, false
	}
	return models.LedgerEntry{Name: track.Name, FilePath: path}, true
}

type mockTagger struct {
	tagged []string
	err    error
}

func (m *mockTagger) Tag(ctx context.Context, path string, track models.TrackDescriptor) error {
	m.tagged = append(m.tagged, path)
	return m.err
}

func transient(msg string) error {
	return &resolver.Error{Kind: resolver.Transient, Op: "localize", Err: errors.New(msg)}
}

func newTestRetrier(rec *sleepRecorder, headers resolver.HeaderSource) *Retrier {
	return NewRetrier(RetryOpts{
		Headers: headers,
		Jitter:  resolver.NewJitter(rand.New(rand.NewPCG(7, 8)), rec.sleep),
	})
}

func tracks(names ...string) []models.TrackDescriptor {
	out := make([]models.TrackDescriptor, len(names))
	for i, n := range names {
		out[i] = models.TrackDescriptor{Name: n, Artists: []string{"Artist"}}
	}
	return out
}

func TestRetrier(t *testing.T) {
	t.Run("Succeeds First Try", func(t *testing.T) {
		rec := &sleepRecorder{}
		r := newTestRetrier(rec, &countingHeaders{})

		calls := 0
		dl, err := r.Do(context.Background(), func(ctx context.Context, h map[string]string) (*resolver.Download, error) {
			calls++
			return &resolver.Download{Path: "/a.mp3"}, nil
		})
		if err != nil || dl.Path != "/a.mp3" {
			t.Fatalf("unexpected result %v, %v", dl, err)
		}
		if calls != 1 || len(rec.slept) != 0 {
			t.Errorf("expected 1 call without backoff, got %d calls and %d sleeps", calls, len(rec.slept))
		}
	})

	t.Run("Backoff Between Attempts", func(t *testing.T) {
		rec := &sleepRecorder{}
		headers := &countingHeaders{}
		r := newTestRetrier(rec, headers)

		var seen []string
		calls := 0
		_, err := r.Do(context.Background(), func(ctx context.Context, h map[string]string) (*resolver.Download, error) {
			calls++
			seen = append(seen, h["User-Agent"])
			if calls < 3 {
				return nil, transient("timeout")
			}
			return &resolver.Download{Path: "/a.mp3"}, nil
		})
		if err != nil {
			t.Fatalf("expected success on third attempt, got %v", err)
		}
		if len(rec.slept) != 2 {
			t.Fatalf("expected 2 backoff pauses, got %d", len(rec.slept))
		}
		for _, d := range rec.slept {
			if d < 2*time.Second || d > 5*time.Second {
				t.Errorf("backoff %v outside [2s, 5s]", d)
			}
		}
		if headers.calls != 3 || seen[0] == seen[1] || seen[1] == seen[2] {
			t.Errorf("expected fresh headers per attempt, got %v", seen)
		}
	})

	t.Run("Reports Last Error", func(t *testing.T) {
		r := newTestRetrier(&sleepRecorder{}, &countingHeaders{})

		calls := 0
		_, err := r.Do(context.Background(), func(ctx context.Context, h map[string]string) (*resolver.Download, error) {
			calls++
			return nil, transient("failure " + strings.Repeat("!", calls))
		})
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
		if !errors.Is(err, shared.ErrDownloadFailed) {
			t.Errorf("expected ErrDownloadFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "all 3 download attempts failed") || !strings.Contains(err.Error(), "failure !!!") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("Fatal Error Aborts", func(t *testing.T) {
		rec := &sleepRecorder{}
		r := newTestRetrier(rec, &countingHeaders{})

		calls := 0
		fatal := &resolver.Error{Kind: resolver.Localization, Op: "localize", Err: errors.New("rename failed")}
		_, err := r.Do(context.Background(), func(ctx context.Context, h map[string]string) (*resolver.Download, error) {
			calls++
			return nil, fatal
		})
		if calls != 1 || len(rec.slept) != 0 {
			t.Errorf("expected a single attempt, got %d", calls)
		}
		if kind, _ := resolver.KindOf(err); kind != resolver.Localization {
			t.Errorf("expected the localization error to be preserved, got %v", err)
		}
	})

	t.Run("Cancelled During Backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := newTestRetrier(&sleepRecorder{}, &countingHeaders{})

		calls := 0
		_, err := r.Do(ctx, func(ctx context.Context, h map[string]string) (*resolver.Download, error) {
			calls++
			cancel()
			return nil, transient("timeout")
		})
		if calls != 1 {
			t.Errorf("expected no attempt after cancellation, got %d", calls)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		r := NewRetrier(RetryOpts{})
		if r.MaxAttempts() != 3 || r.backoffMin != 2*time.Second || r.backoffMax != 5*time.Second {
			t.Errorf("unexpected defaults %+v", r)
		}
	})
}

func TestDownloadEngine(t *testing.T) {
	newEngine := func(loc *mockLocalizer, rec *mockRecorder, tagger Tagger, skip bool) *DownloadEngine {
		opts := EngineOpts{
			Resolver:     loc,
			Retrier:      newTestRetrier(&sleepRecorder{}, resolver.NewHeaderRandomizer(rand.New(rand.NewPCG(1, 1)))),
			SkipExisting: skip,
		}
		if rec != nil {
			opts.Ledger = rec
		}
		if tagger != nil {
			opts.Tagger = tagger
		}
		return NewDownloadEngine(opts)
	}

	t.Run("Preserves Order And Isolates Failures", func(t *testing.T) {
		loc := newMockLocalizer()
		loc.script["B"] = []error{transient("x"), transient("y"), transient("z")}
		rec := &mockRecorder{}
		engine := newEngine(loc, rec, nil, false)

		result := engine.RunBatch(context.Background(), tracks("A", "B", "C"), nil)

		if result.Total != 3 || result.Succeeded != 2 || result.Failed != 1 {
			t.Fatalf("unexpected counts %+v", result)
		}
		names := []string{result.Items[0].Track.Name, result.Items[1].Track.Name, result.Items[2].Track.Name}
		if strings.Join(names, "") != "ABC" {
			t.Errorf("results out of order: %v", names)
		}
		if result.Items[1].Success || !strings.Contains(result.Items[1].Error, "all 3 download attempts failed") {
			t.Errorf("unexpected failed item %+v", result.Items[1])
		}
		if result.Items[1].Attempts != 3 || loc.calls["C"] != 1 {
			t.Errorf("unexpected attempt counts B=%d C=%d", result.Items[1].Attempts, loc.calls["C"])
		}
		if len(rec.recorded) != 2 {
			t.Errorf("expected 2 ledger records, got %v", rec.recorded)
		}
	})

	t.Run("Empty Batch", func(t *testing.T) {
		result := newEngine(newMockLocalizer(), nil, nil, false).RunBatch(context.Background(), nil, nil)
		if result.Total != 0 || len(result.Items) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("Skip Existing", func(t *testing.T) {
		loc := newMockLocalizer()
		rec := &mockRecorder{existing: map[string]string{"A": "/old/A.mp3"}}
		result := newEngine(loc, rec, nil, true).RunBatch(context.Background(), tracks("A", "B"), nil)

		if !result.Items[0].Skipped || result.Items[0].Path != "/old/A.mp3" || loc.calls["A"] != 0 {
			t.Errorf("expected A to be skipped, got %+v", result.Items[0])
		}
		if result.Skipped != 1 || result.Succeeded != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
	})

	t.Run("Existing Downloaded Again By Default", func(t *testing.T) {
		loc := newMockLocalizer()
		rec := &mockRecorder{existing: map[string]string{"A": "/old/A.mp3"}}
		newEngine(loc, rec, nil, false).RunBatch(context.Background(), tracks("A"), nil)
		if loc.calls["A"] != 1 {
			t.Errorf("expected A to be downloaded, got %d calls", loc.calls["A"])
		}
	})

	t.Run("Tags Native Files Only", func(t *testing.T) {
		tagger := &mockTagger{}
		loc := newMockLocalizer()
		newEngine(loc, nil, tagger, false).RunBatch(context.Background(), tracks("A"), nil)
		if len(tagger.tagged) != 1 {
			t.Errorf("expected native file to be tagged, got %v", tagger.tagged)
		}

		tagger = &mockTagger{}
		loc = newMockLocalizer()
		loc.native = false
		newEngine(loc, nil, tagger, false).RunBatch(context.Background(), tracks("A"), nil)
		if len(tagger.tagged) != 0 {
			t.Errorf("expected renamed file to stay untagged, got %v", tagger.tagged)
		}
	})

	t.Run("Ledger And Tag Failures Keep Success", func(t *testing.T) {
		rec := &mockRecorder{err: shared.ErrLedgerWrite}
		tagger := &mockTagger{err: shared.ErrTagging}
		result := newEngine(newMockLocalizer(), rec, tagger, false).RunBatch(context.Background(), tracks("A"), nil)
		if !result.Items[0].Success {
			t.Errorf("expected success despite ledger failure, got %+v", result.Items[0])
		}
	})

	t.Run("Cancellation Fails Remaining", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loc := newMockLocalizer()
		loc.cancelOn, loc.cancel = "A", cancel
		result := newEngine(loc, nil, nil, false).RunBatch(ctx, tracks("A", "B", "C"), nil)

		if len(result.Items) != 3 {
			t.Fatalf("expected a result per track, got %d", len(result.Items))
		}
		if loc.calls["B"] != 0 || loc.calls["C"] != 0 {
			t.Errorf("expected no attempts after cancellation, got %v", loc.calls)
		}
		if result.Items[2].Success || result.Items[2].Error != context.Canceled.Error() {
			t.Errorf("unexpected item %+v", result.Items[2])
		}
	})

	t.Run("Progress Updates", func(t *testing.T) {
		loc := newMockLocalizer()
		loc.script["B"] = []error{transient("x")}
		progress := make(chan ProgressUpdate, 32)

		newEngine(loc, nil, nil, false).RunBatch(context.Background(), tracks("A", "B"), progress)
		close(progress)

		var retries, done int
		var last ProgressUpdate
		for u := range progress {
			if u.Phase == RetryTrack {
				retries++
			}
			if data, ok := u.Data.(models.BatchProgress); ok && data.Completed == data.Total {
				done++
			}
			last = u
		}
		if retries != 1 {
			t.Errorf("expected 1 retry update, got %d", retries)
		}
		if done == 0 || last.Step != 2 || last.Total != 2 {
			t.Errorf("unexpected final update %+v", last)
		}
	})

	t.Run("Progress Never Blocks", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		result := newEngine(newMockLocalizer(), nil, nil, false).RunBatch(context.Background(), tracks("A"), progress)
		if result.Succeeded != 1 {
			t.Errorf("expected success, got %+v", result)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("ResolveAll", func(t *testing.T) {
		loc := newMockLocalizer()
		engine := NewDownloadEngine(EngineOpts{Resolver: loc})

		results := engine.ResolveAll(context.Background(), tracks("A", "B"), nil)
		if len(results) != 2 || !results[0].OK() || results[0].Location.Kind != models.RemoteURL {
			t.Fatalf("unexpected results %+v", results)
		}
		if results[1].Location.Value != "https://cdn.example/a" {
			t.Errorf("unexpected url %q", results[1].Location.Value)
		}
	})

	t.Run("Never Retried", func(t *testing.T) {
		loc := newMockLocalizer()
		loc.urlErr = transient("timeout")
		engine := NewDownloadEngine(EngineOpts{Resolver: loc})

		results := engine.ResolveAll(context.Background(), tracks("A"), nil)
		if results[0].OK() || !strings.Contains(results[0].Reason, "timeout") {
			t.Errorf("expected failure, got %+v", results[0])
		}
		if loc.calls["A"] != 1 {
			t.Errorf("expected a single resolution call, got %d", loc.calls["A"])
		}
	})
}
