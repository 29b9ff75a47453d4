package resource

import (
	"reflect"
	"sort"
)

// Type is the closed tag identifying what kind of entity a resource is.
// The set mirrors the bridge's v2 resource taxonomy plus the two
// synthetic kinds ("bridge", "rule") produced by the enumerator.
type Type string

// Resource types known to the mirror.
const (
	TypeBridge         Type = "bridge"
	TypeRule           Type = "rule"
	TypeDevice         Type = "device"
	TypeBridgeHome     Type = "bridge_home"
	TypeRoom           Type = "room"
	TypeZone           Type = "zone"
	TypeGroup          Type = "group"
	TypeLight          Type = "light"
	TypeButton         Type = "button"
	TypeRelativeRotary Type = "relative_rotary"
	TypeTemperature    Type = "temperature"
	TypeLightLevel     Type = "light_level"
	TypeMotion         Type = "motion"
	TypeGroupedLight   Type = "grouped_light"
	TypeDevicePower    Type = "device_power"
	TypeConnectivity   Type = "zigbee_connectivity"
	TypeScene          Type = "scene"
)

// ownerTypes are the resource types that may aggregate services.
// An ownership index entry pointing at any other type is tolerated
// (processing continues) but logged as unexpected.
var ownerTypes = map[Type]bool{
	TypeDevice:     true,
	TypeRoom:       true,
	TypeZone:       true,
	TypeGroup:      true,
	TypeBridgeHome: true,
}

// IsOwner reports whether t is a recognized service-owner type.
func (t Type) IsOwner() bool {
	return ownerTypes[t]
}

// ServiceMap nests service resources under an owner, keyed by service
// type then service id. Entries are shared pointers into the Store.
type ServiceMap map[Type]map[string]*Resource

// Resource is a single entity in the mirrored graph.
//
// ID is opaque and bridge-assigned; IDV1 is the legacy-format path id
// ("/lights/1", "/config", ...). Attrs holds the type-specific payload
// exactly as delivered by the bridge, minus the identity fields which
// live on the struct.
type Resource struct {
	ID       string         `json:"id"`
	IDV1     string         `json:"id_v1"`
	Type     Type           `json:"type"`
	Updated  string         `json:"updated,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Services ServiceMap     `json:"-"`
}

// identity fields never merged into Attrs.
var identityKeys = map[string]bool{
	"id":    true,
	"id_v1": true,
	"type":  true,
}

// Merge applies a partial field set on top of the resource's attributes
// and reports whether anything actually changed. Fields already equal
// to their stored value (deep comparison) are left untouched; identity
// fields are ignored.
func (r *Resource) Merge(fields map[string]any) bool {
	if len(fields) == 0 {
		return false
	}
	if r.Attrs == nil {
		r.Attrs = make(map[string]any, len(fields))
	}

	changed := false
	for k, v := range fields {
		if identityKeys[k] {
			continue
		}
		if existing, ok := r.Attrs[k]; ok && reflect.DeepEqual(existing, v) {
			continue
		}
		r.Attrs[k] = deepCopyValue(v)
		changed = true
	}
	return changed
}

// ServiceIDs returns the ids of every nested service across all
// service-type buckets, ordered by type then id. Returns an empty
// slice for resources without services.
func (r *Resource) ServiceIDs() []string {
	if len(r.Services) == 0 {
		return []string{}
	}

	types := make([]Type, 0, len(r.Services))
	for t := range r.Services {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var ids []string
	for _, t := range types {
		bucket := r.Services[t]
		bucketIDs := make([]string, 0, len(bucket))
		for id := range bucket {
			bucketIDs = append(bucketIDs, id)
		}
		sort.Strings(bucketIDs)
		ids = append(ids, bucketIDs...)
	}
	return ids
}

// DeepCopy returns a copy of the resource safe for external mutation.
// Nested services are copied too, severing the shared-pointer link, so
// copies are for read-side consumers only.
func (r *Resource) DeepCopy() *Resource {
	if r == nil {
		return nil
	}

	cpy := *r
	cpy.Attrs = deepCopyMap(r.Attrs)

	if r.Services != nil {
		cpy.Services = make(ServiceMap, len(r.Services))
		for t, bucket := range r.Services {
			cpy.Services[t] = make(map[string]*Resource, len(bucket))
			for id, svc := range bucket {
				cpy.Services[t][id] = svc.DeepCopy()
			}
		}
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}
