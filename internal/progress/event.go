package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Run lifecycle stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRunDone    Stage = "RUN_DONE"
	StageRunAborted Stage = "RUN_ABORTED"
)

// Per-CID stages, in the order a successful CID passes through them.
const (
	StageFetched       Stage = "FETCHED"
	StageExtracted     Stage = "EXTRACTED"
	StageImageSaved    Stage = "IMAGE_DOWNLOADED"
	StageNoImage       Stage = "NO_IMAGE"
	StageImageFailed   Stage = "IMAGE_FAILED"
	StageLedgerUpdated Stage = "LEDGER_UPDATED"
	StageFailed        Stage = "FAILED"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures one step of a run.
type Event struct {
	RunID string
	TS    time.Time
	Stage Stage
	// CID is set for per-CID stages.
	CID int
	URL string
	// Planned is the plan length, set on RUN_START.
	Planned     int
	Bytes       int64
	StatusClass StatusClass
	Dur         time.Duration
	// Note carries low-volume context such as an error message.
	Note string
}

// Terminal reports whether the stage ends processing of a CID.
func (s Stage) Terminal() bool {
	return s == StageLedgerUpdated || s == StageFailed
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart:
		if e.Planned < 0 {
			return errors.New("run start requires planned >= 0")
		}
	case StageRunDone, StageRunAborted:
	case StageFetched, StageExtracted, StageImageSaved, StageNoImage,
		StageImageFailed, StageLedgerUpdated, StageFailed:
		if e.CID <= 0 {
			return fmt.Errorf("stage %s requires cid", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
