package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of an application.
type Component interface {
	// Name is unique within a Registry.
	Name() string
	Start(ctx context.Context) error
	// Stop releases every resource held by the component.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a one-line summary of a component.
type Description struct {
	// Name defaults to Component.Name.
	Name string
	// Type categorizes the component, e.g. "http-client".
	Type string
	// Details is a short configuration summary, e.g. "https://api.example.com handles=4".
	Details string
}

// Describable is implemented by components that summarize themselves.
type Describable interface {
	Describe() Description
}
