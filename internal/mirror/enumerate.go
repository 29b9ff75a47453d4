package mirror

import (
	"context"
	"fmt"

	"github.com/nerrad567/lumen-bridge/internal/resource"
)

// EnumerateAll assembles the full resource set — the synthetic bridge
// entry, the legacy rules, and the expanded device graph — and commits
// it to the store in one step.
//
// The commit is all-or-nothing: every collaborator call and the graph
// expansion must succeed before anything is written, so a failing
// enumeration leaves the store exactly as it was. Returns the
// flattened set of everything now known; every entry carries id, id_v1
// and type.
func (n *Node) EnumerateAll(ctx context.Context) ([]*resource.Resource, error) {
	bridgeRes, err := n.FetchBridgeInfo(ctx, false)
	if err != nil {
		return nil, err
	}

	rules, err := n.FetchLegacyRules(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := n.api.FetchAllResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching resource graph: %w", ErrUpstreamFetch, err)
	}

	expanded, owners, err := resource.Expand(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expanding resource graph: %w", ErrUpstreamFetch, err)
	}

	all := make([]*resource.Resource, 0, 1+len(rules)+len(expanded))
	all = append(all, bridgeRes)
	all = append(all, rules...)
	all = append(all, expanded...)

	n.store.Commit(all, owners)

	n.logger.Info("resource graph enumerated",
		"resources", len(expanded),
		"rules", len(rules))
	return all, nil
}
