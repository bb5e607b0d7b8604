// Package leveladapters connects the level module to the game servers that
// own the island data.
package leveladapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	nc "github.com/nats-io/nats.go"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

// ScanSubject is the request/reply subject the game servers answer on,
// parameterized by group.
func ScanSubject(group sharedtypes.GroupName) string {
	return "island.scan." + string(group)
}

type scanRequest struct {
	OwnerID sharedtypes.OwnerID `json:"owner_id"`
}

type scanResponse struct {
	Found  bool                       `json:"found"`
	Counts sharedtypes.MaterialCounts `json:"counts"`
	Deaths int                        `json:"deaths"`
	Error  string                     `json:"error,omitempty"`
}

// NATSIslandRegistry asks the game server hosting the group to walk the
// island and count materials. The server enforces its own area and time
// bounds; a slow or absent server surfaces here as a timeout.
type NATSIslandRegistry struct {
	conn    *nc.Conn
	timeout time.Duration
	logger  *slog.Logger
}

func NewNATSIslandRegistry(conn *nc.Conn, timeout time.Duration, logger *slog.Logger) *NATSIslandRegistry {
	return &NATSIslandRegistry{
		conn:    conn,
		timeout: timeout,
		logger:  logger,
	}
}

var _ levelservice.IslandRegistry = (*NATSIslandRegistry)(nil)

func (r *NATSIslandRegistry) ScanIsland(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) (*levelservice.ScanResult, error) {
	data, err := json.Marshal(scanRequest{OwnerID: owner})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan request: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	subject := ScanSubject(group)
	r.logger.DebugContext(ctx, "Requesting island scan",
		slog.String("subject", subject),
		slog.String("owner_id", owner.String()),
	)

	reply, err := r.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("island scan request on %s failed: %w", subject, err)
	}

	var resp scanResponse
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan response: %w", err)
	}

	if !resp.Found {
		return nil, levelservice.ErrUnknownOwner
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("island scan rejected: %s", resp.Error)
	}

	return &levelservice.ScanResult{
		Counts: resp.Counts,
		Deaths: resp.Deaths,
	}, nil
}
