package domain

// Status represents the health of a service or the state an incident reports.
type Status string

// Statuses.
const (
	StatusUp          Status = "up"
	StatusDown        Status = "down"
	StatusMaintenance Status = "maintenance"
	StatusUnknown     Status = "unknown"
)

// prettyStatuses maps every known status to its display name.
var prettyStatuses = map[Status]string{
	StatusUp:          "Operational",
	StatusDown:        "Unavailable",
	StatusMaintenance: "Maintenance",
	StatusUnknown:     "Unknown",
}

// IsValid checks if the status belongs to the known vocabulary.
func (s Status) IsValid() bool {
	_, ok := prettyStatuses[s]
	return ok
}

// Pretty returns the human readable name of the status.
// Values outside the vocabulary are returned unchanged.
func (s Status) Pretty() string {
	if pretty, ok := prettyStatuses[s]; ok {
		return pretty
	}
	return string(s)
}

// IsHealthy reports whether the status is the healthy value.
func (s Status) IsHealthy() bool {
	return s == StatusUp
}

// Statuses returns the known vocabulary in display order.
func Statuses() []Status {
	return []Status{StatusUp, StatusDown, StatusMaintenance, StatusUnknown}
}

// Service represents a monitored service loaded from configuration.
type Service struct {
	ID          string
	Title       string
	Link        string
	Description string
	// AlertID is the monitoring backend's alert identifier. It never leaves the process.
	AlertID string
}

// ServiceMap indexes services by ID while keeping configuration order.
// A nil *ServiceMap is empty.
type ServiceMap struct {
	order []string
	byID  map[string]Service
}

// NewServiceMap creates an ordered service index. Later duplicates replace earlier entries.
func NewServiceMap(services []Service) *ServiceMap {
	m := &ServiceMap{byID: make(map[string]Service, len(services))}
	for _, svc := range services {
		if _, exists := m.byID[svc.ID]; !exists {
			m.order = append(m.order, svc.ID)
		}
		m.byID[svc.ID] = svc
	}
	return m
}

// Get returns the service by ID.
func (m *ServiceMap) Get(id string) (Service, bool) {
	if m == nil {
		return Service{}, false
	}
	svc, ok := m.byID[id]
	return svc, ok
}

// List returns services in configuration order.
func (m *ServiceMap) List() []Service {
	if m == nil {
		return nil
	}
	out := make([]Service, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Len returns the number of services.
func (m *ServiceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}
