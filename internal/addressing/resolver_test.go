package addressing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chantier_portal_backend/internal/geocoding"
)

const testDebounce = 5 * time.Millisecond

type fakeGeocoder struct {
	mu            sync.Mutex
	searchCalls   []string
	reverseCalls  int
	searchResults map[string][]geocoding.Candidate
	searchGates   map[string]chan struct{}
	reverseResult *geocoding.Candidate
	reverseErr    error
	reverseGate   chan struct{}
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		searchResults: make(map[string][]geocoding.Candidate),
		searchGates:   make(map[string]chan struct{}),
	}
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) ([]geocoding.Candidate, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	gate := f.searchGates[query]
	results := f.searchResults[query]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, nil
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lng float64) (*geocoding.Candidate, error) {
	f.mu.Lock()
	f.reverseCalls++
	gate := f.reverseGate
	result, err := f.reverseResult, f.reverseErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, err
}

func (f *fakeGeocoder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.searchCalls))
	copy(out, f.searchCalls)
	return out
}

func cand(label string, lat, lng float64) geocoding.Candidate {
	return geocoding.Candidate{Label: label, Lat: lat, Lng: lng, Score: 0.9}
}

func newTestResolver(geocoder Geocoder, initial Selection) *Resolver {
	return NewResolver(geocoder, &MapState{center: LatLng{Lat: 45.764, Lng: 4.8357}, zoom: 13}, testDebounce, initial)
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestShortQueryNeverSearches(t *testing.T) {
	geocoder := newFakeGeocoder()
	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("ru")
	time.Sleep(4 * testDebounce)

	if calls := geocoder.calls(); len(calls) != 0 {
		t.Fatalf("expected no searches for a 2-char query, got %v", calls)
	}

	snap := r.Snapshot()
	if snap.SearchEnabled {
		t.Error("search should be disabled below the minimum length")
	}
	if snap.State != StateIdle {
		t.Errorf("expected idle state, got %s", snap.State)
	}
}

func TestDebounceCollapsesKeystrokes(t *testing.T) {
	geocoder := newFakeGeocoder()
	geocoder.searchResults["10 rue gabriel peri"] = []geocoding.Candidate{cand("10 Rue Gabriel Péri 69100 Villeurbanne", 45.766, 4.879)}

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	// Simulated typing, each keystroke inside the debounce window.
	for _, q := range []string{"10 r", "10 rue", "10 rue gab", "10 rue gabriel peri"} {
		r.SetQuery(q)
		time.Sleep(testDebounce / 5)
	}

	waitFor(t, "results", func() bool { return r.Snapshot().State == StateResultsShown })

	calls := geocoder.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one search, got %v", calls)
	}
	if calls[0] != "10 rue gabriel peri" {
		t.Errorf("expected the final query to be searched, got %q", calls[0])
	}
}

func TestShrinkingQueryCancelsPendingSearch(t *testing.T) {
	geocoder := newFakeGeocoder()
	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("10 rue")
	r.SetQuery("10") // backspaced below the minimum before the timer fired
	time.Sleep(4 * testDebounce)

	if calls := geocoder.calls(); len(calls) != 0 {
		t.Fatalf("expected the pending search to be cancelled, got %v", calls)
	}
}

func TestStaleSearchResponseDropped(t *testing.T) {
	geocoder := newFakeGeocoder()
	oldGate := make(chan struct{})
	geocoder.searchGates["10 rue ancienne"] = oldGate
	geocoder.searchResults["10 rue ancienne"] = []geocoding.Candidate{cand("10 Rue Ancienne", 1, 1)}
	geocoder.searchResults["20 rue nouvelle"] = []geocoding.Candidate{cand("20 Rue Nouvelle", 2, 2)}

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("10 rue ancienne")
	waitFor(t, "first search issued", func() bool { return len(geocoder.calls()) == 1 })

	r.SetQuery("20 rue nouvelle")
	waitFor(t, "second results applied", func() bool {
		snap := r.Snapshot()
		return len(snap.Candidates) == 1 && snap.Candidates[0].Label == "20 Rue Nouvelle"
	})

	// The slow first response lands now and must be discarded.
	close(oldGate)
	time.Sleep(4 * testDebounce)

	snap := r.Snapshot()
	if len(snap.Candidates) != 1 || snap.Candidates[0].Label != "20 Rue Nouvelle" {
		t.Fatalf("stale response overwrote fresh results: %+v", snap.Candidates)
	}
}

func TestSearchLandingAfterMapClickDropped(t *testing.T) {
	geocoder := newFakeGeocoder()
	gate := make(chan struct{})
	geocoder.searchGates["10 rue lente"] = gate
	geocoder.searchResults["10 rue lente"] = []geocoding.Candidate{cand("10 Rue Lente", 1, 1)}
	reversed := cand("3 Quai Saint-Antoine 69002 Lyon", 45.7635, 4.8312)
	geocoder.reverseResult = &reversed

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("10 rue lente")
	waitFor(t, "search in flight", func() bool { return len(geocoder.calls()) == 1 })

	// The user clicks the map before the slow search returns.
	r.ClickMap(45.7635, 4.8312)
	waitFor(t, "selection", func() bool { return r.Snapshot().State == StateSelected })

	close(gate)
	time.Sleep(4 * testDebounce)

	snap := r.Snapshot()
	if snap.State != StateSelected {
		t.Fatalf("late search results reopened the list, state %s", snap.State)
	}
	if len(snap.Candidates) != 0 {
		t.Fatalf("late search results repopulated candidates: %+v", snap.Candidates)
	}
}

func TestSelectCandidateUpdatesSelectionAndMap(t *testing.T) {
	geocoder := newFakeGeocoder()
	geocoder.searchResults["place bellecour"] = []geocoding.Candidate{
		cand("Place Bellecour 69002 Lyon", 45.7578, 4.8320),
		cand("Rue Bellecour 42300 Roanne", 46.036, 4.068),
	}

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("place bellecour")
	waitFor(t, "results", func() bool { return len(r.Snapshot().Candidates) == 2 })

	if err := r.SelectCandidate(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := r.Snapshot()
	if snap.State != StateSelected {
		t.Errorf("expected selected state, got %s", snap.State)
	}
	if snap.Selection.Label != "Place Bellecour 69002 Lyon" {
		t.Errorf("unexpected selection label %q", snap.Selection.Label)
	}
	if !snap.Selection.HasCoordinates() || *snap.Selection.Lat != 45.7578 {
		t.Errorf("selection coordinates not set: %+v", snap.Selection)
	}
	if len(snap.Candidates) != 0 {
		t.Error("candidate list should be cleared after selection")
	}
	if snap.Map.Marker == nil || snap.Map.Marker.Lat != 45.7578 || snap.Map.Marker.Lng != 4.8320 {
		t.Errorf("marker not placed on the selection: %+v", snap.Map.Marker)
	}
	if snap.Map.Center.Lat != 45.7578 {
		t.Errorf("map not recentred: %+v", snap.Map.Center)
	}
	if !snap.CanConfirm {
		t.Error("confirm should be enabled once a labelled selection exists")
	}
}

func TestSelectCandidateOutOfRange(t *testing.T) {
	r := newTestResolver(newFakeGeocoder(), Selection{})
	defer r.Close()

	if err := r.SelectCandidate(0); err == nil {
		t.Fatal("expected an error selecting from an empty list")
	}
}

func TestSubmitAutoSelectsTopCandidate(t *testing.T) {
	geocoder := newFakeGeocoder()
	geocoder.searchResults["1 rue de la paix paris"] = []geocoding.Candidate{
		cand("1 Rue de la Paix 75002 Paris", 48.869, 2.3315),
		cand("Rue de la Paix 69003 Lyon", 45.764, 4.8357),
	}

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("1 rue de la paix paris")
	r.SubmitQuery()

	waitFor(t, "auto-selection", func() bool { return r.Snapshot().State == StateSelected })

	snap := r.Snapshot()
	if snap.Selection.Label != "1 Rue de la Paix 75002 Paris" {
		t.Errorf("expected the top candidate, got %q", snap.Selection.Label)
	}
}

func TestSubmitWithNoResultsStaysUnselected(t *testing.T) {
	geocoder := newFakeGeocoder()
	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.SetQuery("zzz introuvable")
	r.SubmitQuery()

	waitFor(t, "empty results", func() bool { return r.Snapshot().State == StateResultsShown })

	snap := r.Snapshot()
	if snap.CanConfirm {
		t.Error("confirm must stay disabled without a labelled selection")
	}
}

func TestMapClickRefinesLabelOnReverseSuccess(t *testing.T) {
	geocoder := newFakeGeocoder()
	reversed := cand("3 Quai Saint-Antoine 69002 Lyon", 45.7635, 4.8312)
	geocoder.reverseResult = &reversed

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.ClickMap(45.7635, 4.8312)

	// Coordinates and marker apply before the reverse geocode returns.
	snap := r.Snapshot()
	if !snap.Selection.HasCoordinates() {
		t.Fatal("coordinates should apply immediately on click")
	}
	if snap.Map.Marker == nil {
		t.Fatal("marker should be placed immediately on click")
	}

	waitFor(t, "reverse label", func() bool {
		return r.Snapshot().Selection.Label == "3 Quai Saint-Antoine 69002 Lyon"
	})
}

func TestMapClickKeepsLabelWhenReverseFails(t *testing.T) {
	geocoder := newFakeGeocoder()
	geocoder.reverseErr = errors.New("upstream down")

	r := newTestResolver(geocoder, Selection{Label: "Ancienne adresse"})
	defer r.Close()

	r.ClickMap(45.0, 4.0)
	time.Sleep(4 * testDebounce)

	snap := r.Snapshot()
	if snap.Selection.Label != "Ancienne adresse" {
		t.Errorf("label must survive a reverse failure, got %q", snap.Selection.Label)
	}
	if !snap.Selection.HasCoordinates() || *snap.Selection.Lat != 45.0 {
		t.Errorf("click coordinates lost: %+v", snap.Selection)
	}
	if !snap.CanConfirm {
		t.Error("confirm stays available through a reverse failure")
	}
}

func TestStaleReverseResponseDropped(t *testing.T) {
	geocoder := newFakeGeocoder()
	gate := make(chan struct{})
	slow := cand("Premier Point", 1, 1)
	geocoder.reverseGate = gate
	geocoder.reverseResult = &slow

	r := newTestResolver(geocoder, Selection{})
	defer r.Close()

	r.ClickMap(1, 1)
	waitFor(t, "first reverse in flight", func() bool {
		geocoder.mu.Lock()
		defer geocoder.mu.Unlock()
		return geocoder.reverseCalls == 1
	})

	// Second click supersedes the first; unblock its reverse immediately.
	fresh := cand("Second Point", 2, 2)
	geocoder.mu.Lock()
	geocoder.reverseGate = nil
	geocoder.reverseResult = &fresh
	geocoder.mu.Unlock()

	r.ClickMap(2, 2)
	waitFor(t, "second label", func() bool { return r.Snapshot().Selection.Label == "Second Point" })

	close(gate)
	time.Sleep(4 * testDebounce)

	if label := r.Snapshot().Selection.Label; label != "Second Point" {
		t.Fatalf("stale reverse overwrote the label: %q", label)
	}
}

func TestLocateFailedEmitsNoticeWithoutStateChange(t *testing.T) {
	r := newTestResolver(newFakeGeocoder(), Selection{})

	snapshots, unsubscribe := r.Subscribe()
	defer unsubscribe()
	defer r.Close()

	before := r.Snapshot()
	r.LocateFailed("autorisation refusée")

	select {
	case snap := <-snapshots:
		if snap.Notice != "autorisation refusée" {
			t.Errorf("expected the failure notice, got %q", snap.Notice)
		}
		if snap.State != before.State || snap.Selection != before.Selection {
			t.Error("locate failure must not change resolver state")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	// The notice is one-shot: the next snapshot carries none.
	if r.Snapshot().Notice != "" {
		t.Error("notice leaked into subsequent snapshots")
	}
}

func TestConfirmGateRequiresLabel(t *testing.T) {
	r := newTestResolver(newFakeGeocoder(), Selection{})
	defer r.Close()

	if r.CanConfirm() {
		t.Error("confirm must be disabled with no selection")
	}
	if _, err := r.Confirm(); err == nil {
		t.Fatal("expected confirm to fail without a label")
	}
}

func TestConfirmAllowsLabelWithoutCoordinates(t *testing.T) {
	r := newTestResolver(newFakeGeocoder(), Selection{Label: "12 rue sans géocodage"})

	selection, err := r.Confirm()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selection.Label != "12 rue sans géocodage" || selection.HasCoordinates() {
		t.Fatalf("unexpected selection %+v", selection)
	}
}

func TestConfirmReturnsOnceAndCloses(t *testing.T) {
	lat, lng := 45.7578, 4.8320
	r := newTestResolver(newFakeGeocoder(), Selection{Label: "Place Bellecour 69002 Lyon", Lat: &lat, Lng: &lng})

	if _, err := r.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Confirm(); err == nil {
		t.Fatal("second confirm must fail")
	}
}

func TestCloseDropsLateCompletions(t *testing.T) {
	geocoder := newFakeGeocoder()
	gate := make(chan struct{})
	geocoder.searchGates["10 rue lente"] = gate
	geocoder.searchResults["10 rue lente"] = []geocoding.Candidate{cand("10 Rue Lente", 1, 1)}

	r := newTestResolver(geocoder, Selection{})

	snapshots, unsubscribe := r.Subscribe()
	defer unsubscribe()

	r.SetQuery("10 rue lente")
	waitFor(t, "search in flight", func() bool { return len(geocoder.calls()) == 1 })

	r.Close()
	close(gate)
	time.Sleep(4 * testDebounce)

	// The subscription channel closed on teardown and no snapshot from the
	// late completion ever arrives.
	for snap := range snapshots {
		if len(snap.Candidates) > 0 {
			t.Fatalf("snapshot delivered after close: %+v", snap)
		}
	}
}

func TestInitialSelectionSeedsMap(t *testing.T) {
	lat, lng := 45.7578, 4.8320
	r := newTestResolver(newFakeGeocoder(), Selection{Label: "Place Bellecour 69002 Lyon", Lat: &lat, Lng: &lng})
	defer r.Close()

	snap := r.Snapshot()
	if snap.Map.Marker == nil || snap.Map.Marker.Lat != lat {
		t.Errorf("marker not seeded from the initial selection: %+v", snap.Map.Marker)
	}
	if !snap.CanConfirm {
		t.Error("confirm should be enabled for a seeded selection")
	}
}
