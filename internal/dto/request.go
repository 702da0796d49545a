package dto

import "encoding/json"

// OpenRequest carries what the transport extracted from a pixel fetch
type OpenRequest struct {
	UID       string
	IP        string
	UserAgent string
}

// ClickRequest carries what the transport extracted from a tracked link
type ClickRequest struct {
	UID string
	URL string
	IP  string
}

// ListEventsRequest represents a query for opens or clicks
type ListEventsRequest struct {
	// Limit is the raw query value; empty selects the default
	Limit string
	// All returns every row newest first instead of the unsynced backlog
	All bool
}

// MarkSyncedRequest is the acknowledgment batch. Items stay raw so a single
// malformed id can be rejected without failing the whole request.
type MarkSyncedRequest struct {
	OpenIDs  []json.RawMessage `json:"open_ids"`
	ClickIDs []json.RawMessage `json:"click_ids"`

	// MalformedOpenIDs and MalformedClickIDs hold a field that was present
	// but not an array, so the other field can still be applied
	MalformedOpenIDs  json.RawMessage `json:"-"`
	MalformedClickIDs json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes each id list on its own. Only a body that is not a
// JSON object is an error.
func (r *MarkSyncedRequest) UnmarshalJSON(data []byte) error {
	var fields struct {
		OpenIDs  json.RawMessage `json:"open_ids"`
		ClickIDs json.RawMessage `json:"click_ids"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = MarkSyncedRequest{}
	r.OpenIDs, r.MalformedOpenIDs = decodeIDList(fields.OpenIDs)
	r.ClickIDs, r.MalformedClickIDs = decodeIDList(fields.ClickIDs)
	return nil
}

func decodeIDList(raw json.RawMessage) ([]json.RawMessage, json.RawMessage) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, raw
	}
	return items, nil
}
