package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"limit must be a positive integer"`
}

// OpenRecord is an open event on the wire
type OpenRecord struct {
	ID        int64  `json:"id" example:"1"`
	UID       string `json:"uid" example:"42"`
	Timestamp string `json:"timestamp" example:"2026-01-02 15:04:05"`
	IP        string `json:"ip" example:"203.0.113.7"`
	UserAgent string `json:"user_agent" example:"Mozilla/5.0"`
	Synced    bool   `json:"synced" example:"false"`
}

// ClickRecord is a click event on the wire
type ClickRecord struct {
	ID        int64  `json:"id" example:"1"`
	UID       string `json:"uid" example:"42"`
	URL       string `json:"url" example:"https://example.com"`
	Timestamp string `json:"timestamp" example:"2026-01-02 15:04:05"`
	IP        string `json:"ip" example:"203.0.113.7"`
	Synced    bool   `json:"synced" example:"false"`
}

// ListOpensResponse represents the opens listing
type ListOpensResponse struct {
	Count int          `json:"count" example:"1"`
	Opens []OpenRecord `json:"opens"`
}

// ListClicksResponse represents the clicks listing
type ListClicksResponse struct {
	Count  int           `json:"count" example:"1"`
	Clicks []ClickRecord `json:"clicks"`
}

// RejectedID describes an acknowledgment item that was not applied
type RejectedID struct {
	Table  string `json:"table" example:"opens"`
	Value  string `json:"value" example:"\"abc\""`
	Reason string `json:"reason" example:"not an integer id"`
}

// MarkSyncedResponse reports how many rows were newly flipped
type MarkSyncedResponse struct {
	Status   string       `json:"status" example:"ok"`
	Marked   int64        `json:"marked" example:"2"`
	Rejected []RejectedID `json:"rejected"`
}

// StatsResponse represents live store counters
type StatsResponse struct {
	TotalOpens     int64 `json:"total_opens" example:"120"`
	TotalClicks    int64 `json:"total_clicks" example:"30"`
	UnsyncedOpens  int64 `json:"unsynced_opens" example:"4"`
	UnsyncedClicks int64 `json:"unsynced_clicks" example:"1"`
	RecentOpens24h int64 `json:"recent_opens_24h" example:"17"`
}

// StatusResponse represents the service status page
type StatusResponse struct {
	Service       string `json:"service" example:"Email Tracker"`
	Status        string `json:"status" example:"running"`
	Version       string `json:"version" example:"2.0"`
	Database      string `json:"database" example:"SQLite"`
	TotalOpens    int64  `json:"total_opens" example:"120"`
	TotalClicks   int64  `json:"total_clicks" example:"30"`
	UnsyncedOpens int64  `json:"unsynced_opens" example:"4"`
}
