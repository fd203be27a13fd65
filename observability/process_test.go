package observability

import (
	"log/slog"
	"os"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestProcessProbe_Stats(t *testing.T) {
	req := require.New(t)
	probe, err := NewProcessProbe(logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	stats, err := probe.Stats()
	req.NoError(err)
	req.Equal(int32(os.Getpid()), stats.PID)
	req.Positive(stats.RSSBytes)
	req.Positive(stats.Goroutines)
}
