// Package addressing implements address resolution sessions: debounced
// forward search, reverse geocoding on map clicks, locate-me, selection state
// and the confirm gate. One Resolver backs one open address selector modal;
// the browser sends commands over HTTP and mirrors state from SSE snapshots.
package addressing

import (
	"context"
	"strings"
	"sync"
	"time"

	"chantier_portal_backend/internal/geocoding"
	"chantier_portal_backend/platform/apperr"
)

// State is the resolver's search lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateSearching    State = "searching"
	StateResultsShown State = "results_shown"
	StateSelected     State = "selected"
)

// MinQueryLength is the minimum query length before a search is issued.
const MinQueryLength = 3

// Selection is the chosen address. Coordinates stay nil when the user typed
// freeform text the geocoder never matched; confirming such a selection is
// allowed and the row is repaired later by the geocode backfill command.
type Selection struct {
	Label string   `json:"label"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

// HasCoordinates reports whether the selection carries a geocoded point.
func (s Selection) HasCoordinates() bool {
	return s.Lat != nil && s.Lng != nil
}

// Snapshot is the full session state pushed to the frontend after every
// transition.
type Snapshot struct {
	State         State                 `json:"state"`
	Query         string                `json:"query"`
	SearchEnabled bool                  `json:"searchEnabled"`
	Candidates    []geocoding.Candidate `json:"candidates"`
	Selection     Selection             `json:"selection"`
	CanConfirm    bool                  `json:"canConfirm"`
	Map           MapSnapshot           `json:"map"`
	// Notice is a one-shot user-visible message (locate failure); it is not
	// part of the persistent state.
	Notice string `json:"notice,omitempty"`
}

// Geocoder is the slice of the geocoding client the resolver needs.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]geocoding.Candidate, error)
	Reverse(ctx context.Context, lat, lng float64) (*geocoding.Candidate, error)
}

// Resolver owns one session's state. All mutations are serialized behind one
// mutex (single-writer discipline); geocode calls run in goroutines and
// re-enter through the sequence-number checks, so completions that lost the
// race or arrived after teardown are dropped.
type Resolver struct {
	mu       sync.Mutex
	geocoder Geocoder
	mapView  MapBinding
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	state      State
	query      string
	lastIssued string
	candidates []geocoding.Candidate
	selection  Selection

	timer *time.Timer

	// Monotonic per-kind request sequence numbers. A completion applies only
	// when no newer request of the same kind has been issued since.
	searchSeq  uint64
	reverseSeq uint64

	// autoSelectSeq marks a search (Enter key) whose top result must be
	// selected on arrival.
	autoSelectSeq uint64

	subsMu sync.Mutex
	subs   map[uint64]chan Snapshot
	nextID uint64
}

// NewResolver creates a session resolver. initial seeds the selection from the
// hosting form's current value; debounce below 1ms falls back to 300ms.
func NewResolver(geocoder Geocoder, mapView MapBinding, debounce time.Duration, initial Selection) *Resolver {
	if debounce < time.Millisecond {
		debounce = 300 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Resolver{
		geocoder:  geocoder,
		mapView:   mapView,
		debounce:  debounce,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		selection: initial,
		subs:      make(map[uint64]chan Snapshot),
	}

	if initial.HasCoordinates() {
		mapView.PlaceMarker(*initial.Lat, *initial.Lng)
		mapView.Recentre(*initial.Lat, *initial.Lng, nil)
	}

	return r
}

// SetQuery records a keystroke. Queries shorter than MinQueryLength suppress
// searching entirely; otherwise the debounce timer restarts so only the last
// keystroke inside the window issues a request.
func (r *Resolver) SetQuery(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.query = query
	trimmed := strings.TrimSpace(query)

	if len([]rune(trimmed)) < MinQueryLength {
		r.stopTimerLocked()
		if r.state == StateSearching || r.state == StateResultsShown {
			r.state = StateIdle
			r.candidates = nil
		}
		r.publishLocked("")
		return
	}

	if trimmed == r.lastIssued && r.state != StateIdle {
		// Unchanged since the last accepted search; nothing to restart.
		r.publishLocked("")
		return
	}

	r.state = StateSearching
	r.restartTimerLocked(trimmed)
	r.publishLocked("")
}

// SubmitQuery handles the Enter key: search immediately and select the top
// candidate when one exists. With an empty or too-short query nothing happens.
func (r *Resolver) SubmitQuery() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	trimmed := strings.TrimSpace(r.query)
	if len([]rune(trimmed)) < MinQueryLength {
		return
	}

	r.stopTimerLocked()
	r.state = StateSearching
	seq := r.issueSearchLocked(trimmed)
	r.autoSelectSeq = seq
	r.publishLocked("")
}

// SelectCandidate selects the candidate at the given index of the current
// result list.
func (r *Resolver) SelectCandidate(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return apperr.Conflict("session closed")
	}
	if index < 0 || index >= len(r.candidates) {
		return apperr.BadRequest("candidate index out of range")
	}

	r.applyCandidateLocked(r.candidates[index])
	r.publishLocked("")
	return nil
}

// ClickMap handles a map click: the marker moves immediately and the label is
// refined asynchronously by a reverse geocode. When the reverse lookup fails,
// the prior label is kept untouched.
func (r *Resolver) ClickMap(lat, lng float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.selectCoordinatesLocked(lat, lng)
	r.publishLocked("")
}

// Locate handles a successful locate-me: identical to a map click at the
// device coordinates.
func (r *Resolver) Locate(lat, lng float64) {
	r.ClickMap(lat, lng)
}

// LocateFailed surfaces a geolocation denial or error as a one-shot notice.
// No state changes.
func (r *Resolver) LocateFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if reason == "" {
		reason = "position introuvable"
	}
	r.publishLocked(reason)
}

// CanConfirm reports the confirm gate: enabled if and only if the selected
// label is non-empty.
func (r *Resolver) CanConfirm() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection.Label != ""
}

// Confirm closes the session and returns the selection exactly once.
func (r *Resolver) Confirm() (Selection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Selection{}, apperr.Conflict("session closed")
	}
	if r.selection.Label == "" {
		return Selection{}, apperr.Validation("an address label is required before confirming")
	}

	result := r.selection
	r.teardownLocked()
	return result, nil
}

// Close cancels the session and every in-flight operation. Idempotent.
// No snapshot is delivered after Close returns.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.teardownLocked()
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked("")
}

// Subscribe registers a snapshot channel. The returned function removes the
// subscription; it must be called before the channel is abandoned.
func (r *Resolver) Subscribe() (<-chan Snapshot, func()) {
	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	ch := make(chan Snapshot, 8)
	r.subs[id] = ch
	r.subsMu.Unlock()

	return ch, func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		if existing, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(existing)
		}
	}
}

// =============================================================================
// Internals (callers hold r.mu unless noted)
// =============================================================================

func (r *Resolver) restartTimerLocked(query string) {
	r.stopTimerLocked()
	r.timer = time.AfterFunc(r.debounce, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || strings.TrimSpace(r.query) != query {
			return
		}
		r.issueSearchLocked(query)
	})
}

func (r *Resolver) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// issueSearchLocked starts an asynchronous forward search and returns its
// sequence number.
func (r *Resolver) issueSearchLocked(query string) uint64 {
	r.searchSeq++
	seq := r.searchSeq
	r.lastIssued = query

	go func() {
		candidates, err := r.geocoder.Search(r.ctx, query)
		if err != nil {
			// Soft failure: treated as an empty result set.
			candidates = nil
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || seq != r.searchSeq {
			// A newer search was issued; this completion is stale.
			return
		}
		if r.state != StateSearching {
			// The session moved on while the search was in flight (map
			// click, selection, query cleared); its results are obsolete.
			return
		}

		r.candidates = candidates
		r.state = StateResultsShown

		if seq == r.autoSelectSeq {
			r.autoSelectSeq = 0
			if len(candidates) > 0 {
				r.applyCandidateLocked(candidates[0])
			}
		}

		r.publishLocked("")
	}()

	return seq
}

// applyCandidateLocked moves the session to Selected on the candidate and
// syncs the map.
func (r *Resolver) applyCandidateLocked(candidate geocoding.Candidate) {
	lat, lng := candidate.Lat, candidate.Lng
	r.selection = Selection{Label: candidate.Label, Lat: &lat, Lng: &lng}
	r.candidates = nil
	r.state = StateSelected
	r.mapView.PlaceMarker(lat, lng)
	r.mapView.Recentre(lat, lng, nil)
}

// selectCoordinatesLocked selects a raw point: marker and selection update
// immediately, the label refines when the reverse geocode lands.
func (r *Resolver) selectCoordinatesLocked(lat, lng float64) {
	latCopy, lngCopy := lat, lng
	r.selection.Lat = &latCopy
	r.selection.Lng = &lngCopy
	r.candidates = nil
	r.state = StateSelected
	r.mapView.PlaceMarker(lat, lng)
	r.mapView.Recentre(lat, lng, nil)

	r.reverseSeq++
	seq := r.reverseSeq

	go func() {
		candidate, err := r.geocoder.Reverse(r.ctx, lat, lng)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || seq != r.reverseSeq {
			return
		}
		if err != nil || candidate == nil {
			// Keep the prior label rather than overwrite it with an error state.
			return
		}

		r.selection.Label = candidate.Label
		r.publishLocked("")
	}()
}

func (r *Resolver) teardownLocked() {
	r.closed = true
	r.stopTimerLocked()
	r.cancel()

	r.subsMu.Lock()
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.subsMu.Unlock()
}

func (r *Resolver) snapshotLocked(notice string) Snapshot {
	trimmed := strings.TrimSpace(r.query)
	return Snapshot{
		State:         r.state,
		Query:         r.query,
		SearchEnabled: len([]rune(trimmed)) >= MinQueryLength,
		Candidates:    r.candidates,
		Selection:     r.selection,
		CanConfirm:    r.selection.Label != "",
		Map:           r.mapView.Snapshot(),
		Notice:        notice,
	}
}

func (r *Resolver) publishLocked(notice string) {
	snap := r.snapshotLocked(notice)

	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			// Slow consumer; it will resync from the next snapshot.
		}
	}
}
