// Package levelevents defines the NATS topics and payloads exchanged with the
// rest of the cluster for island level calculations.
package levelevents

import (
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// Topics. Game servers publish requested/disconnected; this service publishes
// the rest.
const (
	CalculationRequested = "level.calculation.requested"
	CalculationStarted   = "level.calculation.started"
	CalculationSucceeded = "level.calculation.succeeded"
	CalculationFailed    = "level.calculation.failed"
	OwnerDisconnected    = "level.owner.disconnected"
)

// CalculationRequestedPayloadV1 triggers a (re)calculation of an owner's
// island level.
type CalculationRequestedPayloadV1 struct {
	GroupName  sharedtypes.GroupName `json:"group_name"`
	OwnerID    sharedtypes.OwnerID   `json:"owner_id"`
	NotifyUser bool                  `json:"notify_user"`
	Force      bool                  `json:"force"`

	// RecordInitial marks the first calculation after island creation; the
	// computed level is stored as the island's initial level.
	RecordInitial bool `json:"record_initial"`
}

// CalculationStartedPayloadV1 is the pre-calculation event. Veto hooks on the
// dispatcher may cancel it; cancellation suppresses only the user-facing
// report, never the underlying count or cache update.
type CalculationStartedPayloadV1 struct {
	GroupName sharedtypes.GroupName `json:"group_name"`
	OwnerID   sharedtypes.OwnerID   `json:"owner_id"`
}

// CalculationSucceededPayloadV1 is the post-calculation event carrying the
// full results of the run.
type CalculationSucceededPayloadV1 struct {
	GroupName     sharedtypes.GroupName `json:"group_name"`
	OwnerID       sharedtypes.OwnerID   `json:"owner_id"`
	Results       sharedtypes.Results   `json:"results"`
	PreviousLevel sharedtypes.Level     `json:"previous_level"`
	LevelChanged  bool                  `json:"level_changed"`
}

// CalculationFailedPayloadV1 reports that a calculation could not run. Reason
// is one of the two user-visible messages; internal detail stays in the logs.
type CalculationFailedPayloadV1 struct {
	GroupName sharedtypes.GroupName `json:"group_name"`
	OwnerID   sharedtypes.OwnerID   `json:"owner_id"`
	Reason    string                `json:"reason"`
}

// OwnerDisconnectedPayloadV1 announces that an owner left the cluster; the
// in-memory cache entry is evicted, durable records are untouched.
type OwnerDisconnectedPayloadV1 struct {
	OwnerID sharedtypes.OwnerID `json:"owner_id"`
}
