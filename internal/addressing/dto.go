package addressing

// OpenSessionRequest seeds the session from the hosting form's current value.
// All fields empty means a blank form.
type OpenSessionRequest struct {
	Label string   `json:"label"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	SessionID string   `json:"sessionId"`
	Snapshot  Snapshot `json:"snapshot"`
}

// QueryRequest carries a keystroke update.
type QueryRequest struct {
	Query string `json:"query"`
}

// SelectRequest picks a candidate by its position in the current result list.
type SelectRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// PointRequest carries coordinates from a map click or a successful locate-me.
type PointRequest struct {
	Lat float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng float64 `json:"lng" binding:"required,min=-180,max=180"`
}

// LocateFailedRequest reports a browser geolocation failure.
type LocateFailedRequest struct {
	Reason string `json:"reason"`
}

// ConfirmResponse is the confirmed address handed back to the hosting form.
type ConfirmResponse struct {
	Selection Selection `json:"selection"`
}
