package repokit

import (
	"context"
	"fmt"
)

// MustGuard runs st.Guard and panics on any error, for service startup
func MustGuard(ctx context.Context, st interface{ Guard(context.Context) error }) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
