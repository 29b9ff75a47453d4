package resource

import "fmt"

// Expand converts the raw resource list fetched from the bridge into
// canonical resources and the ownership index.
//
// Each raw entry must carry "id" and "type". A missing "id_v1" is
// synthesized from the type and id so every stored resource carries a
// legacy id. Entries listing service references ("services": [{rid,
// rtype}]) get those services nested under them by shared pointer, and
// each referenced service gains the entry's id in its owner list, in
// raw-list order.
//
// References to ids absent from the raw list are dropped; the
// ownership index never points outside the returned set.
func Expand(raw []map[string]any) ([]*Resource, map[string][]string, error) {
	resources := make([]*Resource, 0, len(raw))
	byID := make(map[string]*Resource, len(raw))

	for i, entry := range raw {
		r, err := fromRaw(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("resource %d: %w", i, err)
		}
		resources = append(resources, r)
		byID[r.ID] = r
	}

	owners := make(map[string][]string)
	for i, entry := range raw {
		refs := serviceRefs(entry)
		if len(refs) == 0 {
			continue
		}

		owner := resources[i]
		for _, ref := range refs {
			svc, ok := byID[ref.id]
			if !ok {
				continue
			}
			if owner.Services == nil {
				owner.Services = make(ServiceMap)
			}
			bucket := owner.Services[svc.Type]
			if bucket == nil {
				bucket = make(map[string]*Resource)
				owner.Services[svc.Type] = bucket
			}
			bucket[svc.ID] = svc
			owners[svc.ID] = append(owners[svc.ID], owner.ID)
		}
	}

	return resources, owners, nil
}

// fromRaw builds a canonical Resource from one raw bridge entry.
// Identity fields and the service reference list are lifted out of the
// attribute map; everything else is kept as delivered.
func fromRaw(entry map[string]any) (*Resource, error) {
	id, _ := entry["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("missing id")
	}
	typ, _ := entry["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("missing type for %q", id)
	}

	idV1, _ := entry["id_v1"].(string)
	if idV1 == "" {
		idV1 = "/" + typ + "/" + id
	}

	attrs := make(map[string]any, len(entry))
	for k, v := range entry {
		if identityKeys[k] || k == "services" {
			continue
		}
		attrs[k] = deepCopyValue(v)
	}

	return &Resource{
		ID:    id,
		IDV1:  idV1,
		Type:  Type(typ),
		Attrs: attrs,
	}, nil
}

type serviceRef struct {
	id  string
	typ string
}

// serviceRefs extracts the {rid, rtype} reference list from a raw
// entry, tolerating missing or oddly-shaped values.
func serviceRefs(entry map[string]any) []serviceRef {
	list, ok := entry["services"].([]any)
	if !ok {
		return nil
	}

	refs := make([]serviceRef, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rid, _ := m["rid"].(string)
		rtype, _ := m["rtype"].(string)
		if rid == "" {
			continue
		}
		refs = append(refs, serviceRef{id: rid, typ: rtype})
	}
	return refs
}
