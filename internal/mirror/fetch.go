package mirror

import (
	"context"
	"fmt"
	"sort"

	"github.com/nerrad567/lumen-bridge/internal/resource"
)

// Synthetic identity for the bridge's own resource entry.
const (
	bridgeResourceID   = "bridge"
	bridgeResourceIDV1 = "/config"
)

// FetchBridgeInfo synthesizes the single "bridge" resource from the
// configuration collaborator's attribute bag. With mergeIntoStore the
// entry is written into the store under the fixed "bridge" key;
// otherwise the store is untouched, which is how the enumerator uses
// it so the merge happens once with the rest of the graph.
func (n *Node) FetchBridgeInfo(ctx context.Context, mergeIntoStore bool) (*resource.Resource, error) {
	attrs, err := n.api.FetchConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching bridge config: %w", ErrUpstreamFetch, err)
	}

	r := &resource.Resource{
		ID:      bridgeResourceID,
		IDV1:    bridgeResourceIDV1,
		Type:    resource.TypeBridge,
		Updated: n.clock.Now(),
	}
	r.Merge(attrs)

	if mergeIntoStore {
		n.store.Put(r.ID, r)
	}
	return r, nil
}

// FetchLegacyRules maps the rules collaborator's {ruleID: fields}
// entries into rule resources with legacy-format ids. The result is
// ordered by rule id; the wire format is an unordered mapping.
func (n *Node) FetchLegacyRules(ctx context.Context) ([]*resource.Resource, error) {
	ruleMap, err := n.api.FetchRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching rules: %w", ErrUpstreamFetch, err)
	}

	ids := make([]string, 0, len(ruleMap))
	for id := range ruleMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rules := make([]*resource.Resource, 0, len(ids))
	for _, id := range ids {
		r := &resource.Resource{
			ID:   "rule_" + id,
			IDV1: "/rules/" + id,
			Type: resource.TypeRule,
		}
		r.Merge(ruleMap[id])
		rules = append(rules, r)
	}
	return rules, nil
}
