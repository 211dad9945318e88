package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the operator-facing state of a service card.
type Status string

const (
	StatusOnline      Status = "online"
	StatusMaintenance Status = "maintenance"
	StatusInactive    Status = "inactive"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusMaintenance, StatusInactive:
		return true
	default:
		return false
	}
}

// Service is a portal entry.
//
// Built-in services come from the catalog and never change at runtime.
// Custom services embed it and are owned by the store.
type Service struct {
	// ID is unique across built-in and custom services.
	// Built-ins use short ids ("s1"), custom ones are generated by NewCustomID.
	ID string `json:"id"`

	Name        string `json:"name"`
	Description string `json:"description"`

	// Port is the local port the application listens on.
	Port int `json:"port"`

	// Path is the reverse-proxy path, optional.
	Path string `json:"path,omitempty"`

	DefaultStatus Status `json:"defaultStatus"`

	// Icon is an opaque icon reference resolved by the frontend.
	Icon string `json:"iconName"`

	// Category is the category id the service belongs to.
	Category string `json:"category"`
}

// CustomService is a service added through the admin surface.
type CustomService struct {
	Service
	CreatedAt time.Time `json:"createdAt"`
}

// Defaults applied to a custom service when the caller leaves a field empty.
const (
	DefaultCustomIcon     = "Server"
	DefaultCustomCategory = "tools"
)

// NewCustomID returns "custom-<unix millis>-<4 char suffix>".
func NewCustomID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("custom-%d-%s", now.UnixMilli(), suffix)
}

// Category is a static dashboard section.
type Category struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Sublabel string `json:"sublabel"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
}

// Overrides maps a service id to the status shown instead of its default.
type Overrides map[string]Status
