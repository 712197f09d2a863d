package engine

import (
	"context"
	"slices"

	"github.com/rendis/stencil/pkg/schema"
)

// RenderState is the lifecycle state of a single render.
type RenderState string

const (
	RenderActive    RenderState = "active"
	RenderCompleted RenderState = "completed"
	RenderFailed    RenderState = "failed"
)

// ValidRenderTransitions defines the allowed state transitions for renders.
var ValidRenderTransitions = map[RenderState][]RenderState{
	RenderActive:    {RenderCompleted, RenderFailed},
	RenderCompleted: {},
	RenderFailed:    {},
}

// TransitionHook is called after a render changes state.
type TransitionHook func(ctx context.Context, renderID string, from, to RenderState)

// lifecycle tracks one render's state. It belongs to a single render and is
// never shared, so it needs no locking.
type lifecycle struct {
	renderID string
	state    RenderState
	hook     TransitionHook
}

func newLifecycle(renderID string, hook TransitionHook) *lifecycle {
	return &lifecycle{renderID: renderID, state: RenderActive, hook: hook}
}

// Transition validates and executes a render state transition.
func (l *lifecycle) Transition(ctx context.Context, to RenderState) error {
	from := l.state
	if !isValidRenderTransition(from, to) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid render transition: %s -> %s", from, to).
			WithDetails(map[string]any{"render_id": l.renderID, "from": string(from), "to": string(to)})
	}
	l.state = to
	if l.hook != nil {
		l.hook(ctx, l.renderID, from, to)
	}
	return nil
}

// Active reports whether the render may still evaluate nodes.
func (l *lifecycle) Active() bool {
	return l.state == RenderActive
}

func isValidRenderTransition(from, to RenderState) bool {
	allowed, ok := ValidRenderTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}
