package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/siteaudit/internal/progress"
)

func TestLogSinkWritesStructuredFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	err := sink.Consume(context.Background(), []progress.Event{
		{ScanID: "s1", TS: time.Now(), Stage: progress.StageCrawlDone, Site: "https://clinic.test/", Pages: 12},
		{ScanID: "s1", TS: time.Now(), Stage: progress.StageScanDone, Site: "https://clinic.test/", Checks: 40, Score: 88},
	})
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, int64(12), entries[0].ContextMap()["pages"])
	require.Equal(t, int64(88), entries[1].ContextMap()["score"])
	require.Equal(t, "SCAN_DONE", entries[1].ContextMap()["stage"])
}
