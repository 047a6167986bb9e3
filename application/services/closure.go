package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"ckg-backend/application/ports"
	"ckg-backend/domain/config"
	"ckg-backend/domain/core/entities"
	pkgerrors "ckg-backend/pkg/errors"
)

// ClosureService computes bounded dependency closures over a graph store
type ClosureService struct {
	cfg    *config.EngineConfig
	logger *zap.Logger
}

// NewClosureService creates a new closure service
func NewClosureService(cfg *config.EngineConfig, logger *zap.Logger) *ClosureService {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	return &ClosureService{cfg: cfg, logger: logger}
}

// frontierEntry is one node pending expansion, carrying the decayed weight
// of the path that reached it.
type frontierEntry struct {
	nodeID     string
	depth      int
	pathWeight float64
}

// visitKey dedupes edge visits per depth so cyclic graphs terminate
type visitKey struct {
	from  string
	to    string
	rel   entities.Relationship
	depth int
}

// Compute walks outgoing edges breadth-first from the given roots up to
// maxDepth hops. Each result edge is annotated with its hop depth and the
// product of edge weights along its path, attenuated by decay^(hop-1).
// Results are ordered by depth ascending, then weight descending.
func (s *ClosureService) Compute(
	ctx context.Context,
	store ports.GraphStore,
	projectID string,
	roots []string,
	maxDepth int,
) ([]ports.DependencyEdge, error) {
	if maxDepth < 1 {
		return nil, pkgerrors.NewValidationError("maxDepth must be at least 1")
	}
	if maxDepth > s.cfg.MaxDepthLimit {
		maxDepth = s.cfg.MaxDepthLimit
	}

	if len(roots) == 0 {
		nodes, err := store.ListNodes(ctx, projectID)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			roots = append(roots, n.ID().String())
		}
	}

	frontier := make([]frontierEntry, 0, len(roots))
	for _, r := range roots {
		frontier = append(frontier, frontierEntry{nodeID: r, depth: 0, pathWeight: 1.0})
	}

	visited := make(map[visitKey]struct{})
	nodeCache := make(map[string]*entities.Node)
	best := make(map[visitKey]int) // (from,to,rel,0) -> index into results
	results := []ports.DependencyEdge{}
	visitedNodes := 0

	lookupNode := func(id string) *entities.Node {
		if n, ok := nodeCache[id]; ok {
			return n
		}
		n, err := store.GetNode(ctx, projectID, id)
		if err != nil {
			n = nil
		}
		nodeCache[id] = n
		return n
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := frontier[0]
		frontier = frontier[1:]

		if entry.depth >= maxDepth {
			continue
		}

		visitedNodes++
		if visitedNodes > s.cfg.MaxVisitedNodes {
			s.logger.Warn("dependency closure truncated at node visit cap",
				zap.String("projectID", projectID),
				zap.Int("cap", s.cfg.MaxVisitedNodes),
			)
			break
		}

		edges, err := store.ListEdges(ctx, projectID, entry.nodeID, ports.DirectionOut)
		if err != nil {
			return nil, err
		}

		// pathWeight already carries the decay of earlier hops, so one
		// more decay factor per hop past the first yields decay^(hops-1).
		depth := entry.depth + 1
		decay := 1.0
		if depth > 1 {
			decay = s.cfg.HopDecay
		}

		for _, e := range edges {
			key := visitKey{
				from:  e.FromNodeID().String(),
				to:    e.ToNodeID().String(),
				rel:   e.Relationship(),
				depth: depth,
			}
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}

			weight := entry.pathWeight * e.Weight() * decay

			dep := ports.DependencyEdge{
				FromNodeID:   e.FromNodeID().String(),
				ToNodeID:     e.ToNodeID().String(),
				Relationship: e.Relationship(),
				Depth:        depth,
				Weight:       weight,
			}
			if from := lookupNode(dep.FromNodeID); from != nil {
				dep.FromName = from.Name()
				dep.FromType = from.Type()
			}
			if to := lookupNode(dep.ToNodeID); to != nil {
				dep.ToName = to.Name()
				dep.ToType = to.Type()
			}

			// Keep one row per (from, to, relationship): the shallowest
			// depth, and the heaviest path among ties.
			identity := visitKey{from: key.from, to: key.to, rel: key.rel}
			if idx, ok := best[identity]; ok {
				if dep.Depth < results[idx].Depth ||
					(dep.Depth == results[idx].Depth && dep.Weight > results[idx].Weight) {
					results[idx] = dep
				}
			} else {
				best[identity] = len(results)
				results = append(results, dep)
			}

			frontier = append(frontier, frontierEntry{
				nodeID:     dep.ToNodeID,
				depth:      depth,
				pathWeight: weight,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Depth != results[j].Depth {
			return results[i].Depth < results[j].Depth
		}
		return results[i].Weight > results[j].Weight
	})

	return results, nil
}
