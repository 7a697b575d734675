package progress

import (
	"context"
	"fmt"
	"time"
)

// ExampleHub_Emit shows a sink tallying finished scans.
func ExampleHub_Emit() {
	var scores []int
	tally := sinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			if evt.Stage == StageScanDone {
				scores = append(scores, evt.Score)
			}
		}
		return nil
	})
	hub := NewHub(Config{MaxBatchEvents: 1, MaxBatchWait: time.Second}, tally)

	hub.Emit(Event{ScanID: "a", TS: time.Unix(0, 0), Stage: StageScanStart, Site: "https://clinic.test/"})
	hub.Emit(Event{ScanID: "a", TS: time.Unix(9, 0), Stage: StageScanDone, Site: "https://clinic.test/", Score: 95})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Println("scores:", scores)
	// Output:
	// scores: [95]
}
