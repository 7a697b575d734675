package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage names a milestone in a scan.
type Stage string

// Scan milestones.
const (
	StageScanStart Stage = "SCAN_START"
	StageCrawlDone Stage = "CRAWL_DONE"
	StageScanDone  Stage = "SCAN_DONE"
	StageScanError Stage = "SCAN_ERROR"
)

// Event is one scan milestone.
type Event struct {
	ScanID string        `json:"scan_id,omitempty"`
	TS     time.Time     `json:"ts"`
	Stage  Stage         `json:"stage"`
	Site   string        `json:"site"`
	Pages  int64         `json:"pages,omitempty"`
	Checks int64         `json:"checks,omitempty"`
	Score  int           `json:"score,omitempty"`
	Dur    time.Duration `json:"dur,omitempty"`
	// Note holds low-volume context such as error text.
	Note string `json:"note,omitempty"`
}

// Validate rejects events a sink could not attribute.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Site == "" {
		return errors.New("site is required")
	}
	switch e.Stage {
	case StageScanStart, StageCrawlDone, StageScanDone:
	case StageScanError:
		if e.Note == "" {
			return errors.New("scan error requires a note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
