// README: Notification payloads produced by the dispatcher.
package notify

import (
	"time"

	"carpool/internal/types"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

type Notification struct {
	ID          types.ID  `json:"id"`
	RecipientID types.ID  `json:"recipient_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboxLimit caps the per-recipient inbox; older entries are dropped.
const InboxLimit = 20
