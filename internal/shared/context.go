package shared

import "context"

type uiStateContextKey struct{}

// ContextWithUIState stores the UI state in context.
func ContextWithUIState(ctx context.Context, st *UIState) context.Context {
	return context.WithValue(ctx, uiStateContextKey{}, st)
}

// UIStateFromContext extracts the UI state, or nil.
func UIStateFromContext(ctx context.Context) *UIState {
	st, _ := ctx.Value(uiStateContextKey{}).(*UIState)
	return st
}
