package runtime

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/agentflow/agentflow/internal/observability"
)

// debugEnv is the one environment variable the scheduler itself reads
// (structured logging otherwise flows through an injected observability.Logger).
const debugEnv = "AGENTFLOW_DEBUG"

var (
	debugOnce    sync.Once
	debugEnabled bool
)

func isDebug() bool {
	debugOnce.Do(func() {
		_, debugEnabled = os.LookupEnv(debugEnv)
	})
	return debugEnabled
}

// trace emits one AGENTFLOW_DEBUG line. When a Logger has been injected
// (runtime.WithLogger), the line goes through it at Debug level; otherwise
// it falls back to the raw stderr write the scheduler has always used, so
// AGENTFLOW_DEBUG keeps working for a caller that never wires up logging.
func trace(ctx context.Context, logger *observability.Logger, format string, args ...any) {
	if !isDebug() {
		return
	}
	if logger != nil {
		logger.Debug(ctx, fmt.Sprintf(format, args...))
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
