package eventtarget

import (
	"slices"
)

// ShadowRootMode controls whether a shadow root is visible to targets
// outside it, see [WithShadowRoot].
type ShadowRootMode uint8

const (
	// ShadowRootOpen roots are visible from outside.
	ShadowRootOpen ShadowRootMode = iota
	// ShadowRootClosed roots hide their contents from outside, in
	// [Event.ComposedPath], and retarget events that leave them.
	ShadowRootClosed
)

func (m ShadowRootMode) String() string {
	switch m {
	case ShadowRootOpen:
		return `open`
	case ShadowRootClosed:
		return `closed`
	default:
		return `unknown`
	}
}

// EventContext is one participant in an [EventPath].
//
// Node is the tree participant, and CurrentTarget is the target whose
// listeners are invoked; they differ only for the global context appended
// after a root configured [WithGlobal]. Target is the target as seen from
// this context, which differs from the original target outside the shadow
// tree that contains it.
type EventContext struct {
	node              *EventTarget
	currentTarget     *EventTarget
	target            *EventTarget
	closedShadowDepth int
}

// Node returns the tree participant.
func (c EventContext) Node() *EventTarget { return c.node }

// CurrentTarget returns the target whose listeners are invoked.
func (c EventContext) CurrentTarget() *EventTarget { return c.currentTarget }

// Target returns the target as seen from this context.
func (c EventContext) Target() *EventTarget { return c.target }

// ClosedShadowDepth returns the closed shadow root nesting, relative to the
// original target, which is 0. Contexts outside the target's closed shadow
// roots have negative depths.
func (c EventContext) ClosedShadowDepth() int { return c.closedShadowDepth }

// EventPath is the ordered list of contexts an event visits, innermost (the
// target) first. Capturing visits it in reverse.
type EventPath struct {
	contexts []EventContext
}

// NewFlatEventPath returns a single context path, for targets not part of a
// tree.
func NewFlatEventPath(target *EventTarget) *EventPath {
	return &EventPath{contexts: []EventContext{{
		node:          target,
		currentTarget: target,
		target:        target,
	}}}
}

// NewEventPath builds the path from origin, following [EventTarget.Parent].
//
// A shadow root ([WithShadowRoot]) ends the walk within its tree. The event
// continues at the host if it is composed, or if origin is not directly
// within that shadow root. Leaving a closed shadow root decrements the
// depth, and leaving the tree that contains the current target retargets
// to the host. A parentless root configured [WithGlobal] is followed by a
// context for the global target.
func NewEventPath(origin *EventTarget, event *Event) *EventPath {
	var (
		path   EventPath
		node   = origin
		target = origin
		depth  int
	)
	for node != nil {
		for {
			path.contexts = append(path.contexts, EventContext{
				node:              node,
				currentTarget:     node,
				target:            target,
				closedShadowDepth: depth,
			})
			if node.shadow != nil {
				break
			}
			parent := node.Parent()
			if parent == nil {
				if node.global != nil {
					path.contexts = append(path.contexts, EventContext{
						node:              node,
						currentTarget:     node.global,
						target:            target,
						closedShadowDepth: depth,
					})
				}
				return &path
			}
			node = parent
		}

		root := node
		exitingTargetTree := treeScope(target) == root
		if !event.Composed() && treeScope(origin) == root {
			break
		}
		node = root.shadow.host
		if root.shadow.mode != ShadowRootOpen {
			depth--
		}
		if exitingTargetTree {
			target = node
		}
	}
	return &path
}

// treeScope returns the root of the tree containing target, which is either
// a shadow root or a parentless target.
func treeScope(target *EventTarget) *EventTarget {
	node := target
	for node.shadow == nil {
		parent := node.Parent()
		if parent == nil {
			break
		}
		node = parent
	}
	return node
}

// Len returns the number of contexts.
func (p *EventPath) Len() int {
	if p == nil {
		return 0
	}
	return len(p.contexts)
}

// At returns the context at index i, where 0 is innermost.
func (p *EventPath) At(i int) EventContext { return p.contexts[i] }

// Targets returns every current target, innermost first.
func (p *EventPath) Targets() []*EventTarget {
	targets := make([]*EventTarget, len(p.contexts))
	for i, c := range p.contexts {
		targets[i] = c.currentTarget
	}
	return targets
}

// ComputePathUnclosedToTarget returns the current targets visible from
// viewer, innermost first, or nil if viewer is not in the path.
//
// Starting from the viewer's own depth, each direction is walked outward
// from the viewer, skipping contexts deeper than the allowed depth, and
// lowering the allowed depth whenever a shallower context is included.
func (p *EventPath) ComputePathUnclosedToTarget(viewer *EventTarget) []*EventTarget {
	index := -1
	for i, c := range p.contexts {
		if c.currentTarget == viewer {
			index = i
			break
		}
	}
	if index < 0 {
		return nil
	}

	viewerDepth := p.contexts[index].closedShadowDepth
	result := make([]*EventTarget, 0, len(p.contexts))

	appendVisible := func(c EventContext, allowed *int) {
		if c.closedShadowDepth > *allowed {
			return
		}
		if c.closedShadowDepth < *allowed {
			*allowed = c.closedShadowDepth
		}
		result = append(result, c.currentTarget)
	}

	allowed := viewerDepth
	for i := index; i >= 0; i-- {
		appendVisible(p.contexts[i], &allowed)
	}
	slices.Reverse(result)

	allowed = viewerDepth
	for i := index + 1; i < len(p.contexts); i++ {
		appendVisible(p.contexts[i], &allowed)
	}

	return result
}
