package testutil

import (
	"context"

	"github.com/kbukum/apikit/component"
)

// TestComponent extends component.Component with test state control.
type TestComponent interface {
	component.Component

	// Reset restores the initial state between test cases.
	Reset(ctx context.Context) error
	// Snapshot captures the current state for Restore.
	Snapshot(ctx context.Context) (any, error)
	Restore(ctx context.Context, snapshot any) error
}
