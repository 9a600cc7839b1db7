package media

import "errors"

var (
	ErrNotFound = errors.New("media not found")
	ErrConflict = errors.New("media is in a terminal status")
)

type Media struct {
	ID          string `json:"id"`
	MediaID     string `json:"mediaId,omitempty"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes"`
	OffsetBytes int64  `json:"offsetBytes"`
	UploadLink  string `json:"-"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`

	// Populated from the hosting API on reads, never persisted.
	UpstreamStatus string `json:"upstreamStatus,omitempty"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further upload traffic is accepted for the record.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed || s == StatusCancelled
}

type CreateRequest struct {
	Name        string `json:"name"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType,omitempty"`
}

type CreateResponse struct {
	ID        string `json:"id"`
	MediaID   string `json:"mediaId"`
	UploadURL string `json:"uploadUrl"`
	Status    string `json:"status"`
}

type EventType string

const (
	EventCreated   EventType = "created"
	EventProgress  EventType = "progress"
	EventReady     EventType = "ready"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
	EventDeleted   EventType = "deleted"
)

// Event is published on every media lifecycle transition and on upload progress.
type Event struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id"`
	MediaID string    `json:"mediaId,omitempty"`
	Offset  int64     `json:"offset"`
	Size    int64     `json:"size"`
	Status  string    `json:"status"`
	Reason  string    `json:"reason,omitempty"`
}
