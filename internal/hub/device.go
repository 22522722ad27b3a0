package hub

import (
	"sort"
	"strings"
	"time"
)

// MetaDisplayName is the metadata key holding a device's friendly name.
const MetaDisplayName = "display_name"

// CapabilityParam describes one parameter a device capability accepts.
type CapabilityParam struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Default  *Value `json:"default,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Capability is a function a device declares it can execute.
type Capability struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Params      []CapabilityParam `json:"params,omitempty"`
}

// device is the registry record for one edge device. All fields are
// guarded by the hub mutex.
type device struct {
	id           string
	capabilities []Capability
	meta         map[string]Value
	registeredAt time.Time
	lastSeen     time.Time
	approved     bool
	queue        []*Job // FIFO of QUEUED jobs, head first
	lastResult   *JobResult
}

// displayName returns the friendly name from metadata, or "".
func (d *device) displayName() string {
	v, ok := d.meta[MetaDisplayName]
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return strings.TrimSpace(s)
}

// DeviceView is an immutable snapshot of a device for listings and API
// responses.
type DeviceView struct {
	ID           string
	DisplayName  string
	Capabilities []Capability
	Meta         map[string]Value
	RegisteredAt time.Time
	LastSeen     time.Time
	Approved     bool
	QueueDepth   int
	LastResult   *JobResult
}

// view builds a snapshot. Caller must hold the hub mutex.
func (d *device) view() DeviceView {
	meta := make(map[string]Value, len(d.meta))
	for k, v := range d.meta {
		meta[k] = v
	}
	caps := make([]Capability, len(d.capabilities))
	copy(caps, d.capabilities)

	return DeviceView{
		ID:           d.id,
		DisplayName:  d.displayName(),
		Capabilities: caps,
		Meta:         meta,
		RegisteredAt: d.registeredAt,
		LastSeen:     d.lastSeen,
		Approved:     d.approved,
		QueueDepth:   len(d.queue),
		LastResult:   d.lastResult,
	}
}

// sortDeviceViews orders snapshots by device id for stable listings.
func sortDeviceViews(views []DeviceView) {
	sort.Slice(views, func(i, j int) bool {
		return views[i].ID < views[j].ID
	})
}
