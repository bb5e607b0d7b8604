package levelservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
	"github.com/skybound-club/isle-level/app/shared/utils/results"
)

func calcKey(group sharedtypes.GroupName, owner sharedtypes.OwnerID) string {
	return string(group) + "/" + owner.String()
}

// RequestCalculation (re)computes the owner's island level. If a calculation
// is already pending for the same (owner, group) key, the request attaches
// to it and receives the in-flight result; exactly one registry scan runs
// per key at a time.
func (s *LevelService) RequestCalculation(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID, opts CalculationOptions) (LevelOperationResult, error) {
	return s.withTelemetry(ctx, "RequestCalculation", group, owner, func(ctx context.Context) (LevelOperationResult, error) {
		if owner.IsNil() {
			return results.FailureResult[levelevents.CalculationSucceededPayloadV1](levelevents.CalculationFailedPayloadV1{
				GroupName: group,
				OwnerID:   owner,
				Reason:    ReasonUnknownPlayer,
			}), nil
		}

		key := calcKey(group, owner)

		s.inflightMu.Lock()
		if pending, ok := s.inflight[key]; ok {
			s.inflightMu.Unlock()
			s.metrics.RecordCalculationCoalesced(ctx, group)
			s.logger.DebugContext(ctx, "Attaching to pending calculation",
				slog.String("group", string(group)),
				slog.String("owner_id", owner.String()),
			)
			select {
			case <-pending.done:
				return pending.result, pending.err
			case <-ctx.Done():
				return LevelOperationResult{}, ctx.Err()
			}
		}

		if !opts.Force && s.cooldown > 0 && !s.limiter(key).Allow() {
			s.inflightMu.Unlock()
			return results.FailureResult[levelevents.CalculationSucceededPayloadV1](levelevents.CalculationFailedPayloadV1{
				GroupName: group,
				OwnerID:   owner,
				Reason:    ReasonUnavailable,
			}), nil
		}

		pending := &inflightCalc{done: make(chan struct{})}
		s.inflight[key] = pending
		s.inflightMu.Unlock()

		// The pending marker is cleared on every exit path, panics included.
		// A leaked entry would wedge the key: later requests attach to a
		// result that never arrives.
		defer func() {
			r := recover()
			if r != nil {
				pending.err = fmt.Errorf("calculation panicked: %v", r)
			}
			s.inflightMu.Lock()
			delete(s.inflight, key)
			s.inflightMu.Unlock()
			close(pending.done)
			if r != nil {
				panic(r)
			}
		}()

		s.metrics.RecordCalculationAttempt(ctx, group)
		result, err := s.runCalculation(ctx, group, owner, opts)
		pending.result, pending.err = result, err
		return result, err
	})
}

// runCalculation executes one scan-and-commit cycle. Only the commit section
// touches shared game state; the scan runs unlocked and there is no mid-scan
// cancellation. Once a scan begins it runs to completion or fails.
func (s *LevelService) runCalculation(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID, opts CalculationOptions) (LevelOperationResult, error) {
	// A pre-calculation veto suppresses the user-facing report but never the
	// count itself; the durable record has to reflect reality.
	suppressed := s.events.CalculationStarted(ctx, levelevents.CalculationStartedPayloadV1{
		GroupName: group,
		OwnerID:   owner,
	})

	scan, err := s.registry.ScanIsland(ctx, group, owner)
	if err != nil {
		reason := ReasonUnavailable
		if errors.Is(err, ErrUnknownOwner) {
			reason = ReasonUnknownPlayer
		} else {
			s.logger.ErrorContext(ctx, "Island scan failed, keeping previous level",
				slog.String("group", string(group)),
				slog.String("owner_id", owner.String()),
				slog.Any("error", err),
			)
		}
		failure := levelevents.CalculationFailedPayloadV1{
			GroupName: group,
			OwnerID:   owner,
			Reason:    reason,
		}
		s.events.CalculationFailed(ctx, failure)
		s.metrics.RecordCalculationFailure(ctx, group)
		return results.FailureResult[levelevents.CalculationSucceededPayloadV1](failure), nil
	}
	s.metrics.RecordScannedMaterials(ctx, group, len(scan.Counts))

	previous, err := s.cache.Get(ctx, owner, group)
	if err != nil {
		s.logger.WarnContext(ctx, "Cached level unavailable, comparing against zero",
			slog.String("owner_id", owner.String()),
			slog.Any("error", err),
		)
		previous = 0
	}

	initialLevel := sharedtypes.Level(0)
	if record, err := s.repo.GetRecord(ctx, owner, group); err == nil {
		initialLevel = record.InitialLevel
	}

	computed := s.calc.Compute(scan.Counts, scan.Deaths, initialLevel)
	levelChanged := computed.Level != previous

	// Game-state mutations run one at a time relative to each other.
	s.commitMu.Lock()
	s.cache.Put(ctx, owner, group, computed.Level)
	if opts.RecordInitial {
		computed.InitialLevel = computed.Level
		if err := s.repo.SaveInitialLevel(ctx, owner, group, computed.Level); err != nil {
			s.logger.WarnContext(ctx, "Initial level write failed",
				slog.String("owner_id", owner.String()),
				slog.Any("error", err),
			)
		}
	}
	if levelChanged {
		s.board.Update(group, owner, computed.Level)
		if err := s.repo.SaveTopTen(ctx, group, s.board.Snapshot(group)); err != nil {
			// In-memory state stays authoritative; the snapshot is retried
			// on the next level change in the group.
			s.logger.WarnContext(ctx, "Top ten snapshot write failed",
				slog.String("group", string(group)),
				slog.Any("error", err),
			)
		}
	}
	s.commitMu.Unlock()

	success := levelevents.CalculationSucceededPayloadV1{
		GroupName:     group,
		OwnerID:       owner,
		Results:       computed,
		PreviousLevel: previous,
		LevelChanged:  levelChanged,
	}

	// An unchanged level refreshes the cache but skips the leaderboard write
	// above and the post-calculation notification here.
	if levelChanged {
		if s.events.CalculationSucceeded(ctx, success) {
			suppressed = true
		}
	}

	if suppressed || !opts.NotifyUser || !levelChanged {
		// Silent update: the state changes stand, the report is withheld.
		success.Results.Report = nil
	}

	s.metrics.RecordCalculationSuccess(ctx, group)
	return results.SuccessResult[levelevents.CalculationSucceededPayloadV1, levelevents.CalculationFailedPayloadV1](success), nil
}
