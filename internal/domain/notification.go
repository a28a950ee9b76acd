package domain

import "strings"

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
	NotificationAI      NotificationType = "ai-processing"
)

// NotificationTypes lists every NotificationType in display order.
func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationSuccess,
		NotificationError,
		NotificationWarning,
		NotificationInfo,
		NotificationAI,
	}
}

// ParseNotificationType normalises s. Unknown or empty values become
// NotificationInfo; "ai" is accepted for NotificationAI.
func ParseNotificationType(s string) NotificationType {
	switch t := NotificationType(strings.ToLower(strings.TrimSpace(s))); t {
	case NotificationSuccess, NotificationError, NotificationWarning, NotificationInfo, NotificationAI:
		return t
	case "ai":
		return NotificationAI
	default:
		return NotificationInfo
	}
}

// NotificationDefaults are the per-type fallbacks applied by Show.
type NotificationDefaults struct {
	Title      string
	DurationMS int64
}

// Defaults returns the fallbacks for t. Every type returned by
// NotificationTypes has an entry; anything else gets the info defaults.
func (t NotificationType) Defaults() NotificationDefaults {
	switch t {
	case NotificationSuccess:
		return NotificationDefaults{Title: "Success", DurationMS: 3000}
	case NotificationError:
		return NotificationDefaults{Title: "Error", DurationMS: 5000}
	case NotificationWarning:
		return NotificationDefaults{Title: "Warning", DurationMS: 4000}
	case NotificationAI:
		return NotificationDefaults{Title: "AI Processing", DurationMS: 0}
	default:
		return NotificationDefaults{Title: "Information", DurationMS: 3000}
	}
}

// NotificationAction is an optional call-to-action shown with a notification.
// OnClick only exists in-process; remote renderers follow Href.
type NotificationAction struct {
	Label   string `json:"label" validate:"required"`
	Href    string `json:"href,omitempty"`
	OnClick func() `json:"-"`
}

// Notification is an ephemeral UI message. Duration is in milliseconds and 0
// means it stays until removed.
type Notification struct {
	ID           int64               `json:"id"`
	Type         NotificationType    `json:"type"`
	Title        string              `json:"title"`
	Message      string              `json:"message,omitempty"`
	Description  string              `json:"description,omitempty"`
	Duration     int64               `json:"duration"`
	ShowProgress bool                `json:"showProgress"`
	Action       *NotificationAction `json:"action,omitempty"`
	Timestamp    int64               `json:"timestamp"`
}

// NotificationOptions is the input to Show. Nil Duration and ShowProgress
// mean "use the default".
type NotificationOptions struct {
	Type         string              `json:"type"`
	Title        string              `json:"title"`
	Message      string              `json:"message"`
	Description  string              `json:"description"`
	Duration     *int64              `json:"duration" validate:"omitempty,gte=0"`
	ShowProgress *bool               `json:"showProgress"`
	Action       *NotificationAction `json:"action"`
}
