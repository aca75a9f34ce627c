package idearium

import (
	"context"
	"encoding/json"
	"fmt"
)

// Link is a directed relation between two notions in the same idearium. It
// specializes Notion: the link itself is stored as a relation-role notion
// whose content is the serialized relation, so it flows through trimming and
// formatting like any other memory unit.
type Link struct {
	Notion
	SourceID string
	TargetID string
	Relation string
}

type linkPayload struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Link relates two existing notions. Both endpoints must exist at creation
// time; otherwise ErrReferential is returned and nothing is mutated. The
// resulting link notion is appended at the tail (subject to the budget, like
// any append).
func (i *Idearium) Link(ctx context.Context, sourceID, targetID, relation string) (Link, error) {
	if _, _, ok := i.ByID(sourceID); !ok {
		return Link{}, fmt.Errorf("%w: source %s", ErrReferential, sourceID)
	}
	if _, _, ok := i.ByID(targetID); !ok {
		return Link{}, fmt.Errorf("%w: target %s", ErrReferential, targetID)
	}

	payload, err := json.Marshal(linkPayload{Source: sourceID, Target: targetID, Relation: relation})
	if err != nil {
		return Link{}, fmt.Errorf("marshal link: %w", err)
	}

	l := Link{
		Notion:   New(string(payload), RoleRelation),
		SourceID: sourceID,
		TargetID: targetID,
		Relation: relation,
	}
	if err := i.Append(ctx, l.Notion); err != nil {
		return Link{}, err
	}
	// The append itself can trim, and under a tight budget the strategy may
	// evict or truncate the very notion just added. Register the link only
	// when its payload survived intact.
	n, pos, ok := i.ByID(l.ID)
	if !ok {
		return Link{}, fmt.Errorf("%w: link %s->%s did not fit the budget", ErrCapacity, sourceID, targetID)
	}
	if n.Content != l.Content {
		i.removeAt(pos)
		return Link{}, fmt.Errorf("%w: link %s->%s did not fit the budget", ErrCapacity, sourceID, targetID)
	}
	i.links[l.ID] = l
	return l, nil
}

// LinkByID returns a previously created link by its notion ID.
func (i *Idearium) LinkByID(id string) (Link, bool) {
	l, ok := i.links[id]
	return l, ok
}

// Links returns all live links in insertion order.
func (i *Idearium) Links() []Link {
	var out []Link
	for _, n := range i.notions {
		if l, ok := i.links[n.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}

// ParseLink decodes a relation-role notion back into its endpoints.
func ParseLink(n Notion) (Link, error) {
	if n.Role != RoleRelation {
		return Link{}, fmt.Errorf("idearium: notion %s is not a relation", n.ID)
	}
	var p linkPayload
	if err := json.Unmarshal([]byte(n.Content), &p); err != nil {
		return Link{}, fmt.Errorf("decode link %s: %w", n.ID, err)
	}
	return Link{Notion: n, SourceID: p.Source, TargetID: p.Target, Relation: p.Relation}, nil
}
