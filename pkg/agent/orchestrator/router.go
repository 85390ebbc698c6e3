package orchestrator

import (
	"context"
	"fmt"
	"sort"
)

// Handler serves one intent tag.
type Handler func(ctx context.Context, run *Run) (*TurnReply, error)

type Route struct {
	Tag     string
	Handler Handler
}

// Router is an immutable tag to handler table.
type Router struct {
	routes map[string]Handler
}

// NewRouter panics on an empty tag, a nil handler or a duplicate tag: a
// routing table is wiring, and a broken one must stop startup.
func NewRouter(routes ...Route) *Router {
	table := make(map[string]Handler, len(routes))
	for _, r := range routes {
		if r.Tag == "" || r.Handler == nil {
			panic("orchestrator: route needs a tag and a handler")
		}
		if _, dup := table[r.Tag]; dup {
			panic(fmt.Sprintf("orchestrator: duplicate route %q", r.Tag))
		}
		table[r.Tag] = r.Handler
	}
	return &Router{routes: table}
}

func (r *Router) Lookup(tag string) (Handler, bool) {
	h, ok := r.routes[tag]
	return h, ok
}

func (r *Router) Tags() []string {
	tags := make([]string, 0, len(r.routes))
	for t := range r.routes {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
