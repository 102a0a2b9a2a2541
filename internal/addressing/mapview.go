package addressing

import "chantier_portal_backend/platform/config"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MapSnapshot is the map widget state pushed to the frontend with every
// session snapshot. The browser widget mirrors it verbatim.
type MapSnapshot struct {
	Center LatLng  `json:"center"`
	Zoom   int     `json:"zoom"`
	Marker *LatLng `json:"marker,omitempty"`
}

// MapBinding is the adapter between the resolver and the map widget.
// The resolver is its only mutator.
type MapBinding interface {
	// PlaceMarker puts the single marker at the position, creating it on
	// first use and moving it afterwards.
	PlaceMarker(lat, lng float64)
	// Recentre moves the view. A nil zoom preserves the current zoom.
	Recentre(lat, lng float64, zoom *int)
	// Snapshot returns the current widget state.
	Snapshot() MapSnapshot
}

// MapState is the server-side MapBinding implementation. State changes reach
// the real widget in the browser through the session's SSE snapshots.
type MapState struct {
	center LatLng
	zoom   int
	marker *LatLng
}

// NewMapState creates a map view at the configured fallback point, used until
// an address is known.
func NewMapState(cfg config.AddressSessionConfig) *MapState {
	return &MapState{
		center: LatLng{Lat: cfg.GetMapDefaultLat(), Lng: cfg.GetMapDefaultLng()},
		zoom:   cfg.GetMapDefaultZoom(),
	}
}

// PlaceMarker puts or moves the marker.
func (m *MapState) PlaceMarker(lat, lng float64) {
	m.marker = &LatLng{Lat: lat, Lng: lng}
}

// Recentre moves the view, preserving zoom when none is given.
func (m *MapState) Recentre(lat, lng float64, zoom *int) {
	m.center = LatLng{Lat: lat, Lng: lng}
	if zoom != nil {
		m.zoom = *zoom
	}
}

// Snapshot returns the current widget state.
func (m *MapState) Snapshot() MapSnapshot {
	snap := MapSnapshot{Center: m.center, Zoom: m.zoom}
	if m.marker != nil {
		marker := *m.marker
		snap.Marker = &marker
	}
	return snap
}

var _ MapBinding = (*MapState)(nil)
