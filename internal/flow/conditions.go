package flow

import (
	"context"

	"github.com/agentflow/agentflow/internal/state"
)

// Always is a predicate that passes unconditionally.
func Always() Predicate {
	return func(context.Context, *state.FlowContext) bool { return true }
}

// StateEquals passes when the store holds key with exactly the given value.
func StateEquals(key, expected string) Predicate {
	return func(ctx context.Context, fc *state.FlowContext) bool {
		v, ok, err := fc.Store().Get(ctx, key)
		return err == nil && ok && v == expected
	}
}

// StateNotEquals passes when key is absent, or present with a different value.
func StateNotEquals(key, value string) Predicate {
	return func(ctx context.Context, fc *state.FlowContext) bool {
		v, ok, err := fc.Store().Get(ctx, key)
		if err != nil {
			return false
		}
		if !ok {
			return true
		}
		return v != value
	}
}

// StateExists passes when key is present in the store.
func StateExists(key string) Predicate {
	return func(ctx context.Context, fc *state.FlowContext) bool {
		_, ok, err := fc.Store().Get(ctx, key)
		return err == nil && ok
	}
}

// StateAbsent passes when key is not present in the store.
func StateAbsent(key string) Predicate {
	return func(ctx context.Context, fc *state.FlowContext) bool {
		_, ok, err := fc.Store().Get(ctx, key)
		return err == nil && !ok
	}
}
