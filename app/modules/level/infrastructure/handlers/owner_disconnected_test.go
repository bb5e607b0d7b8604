package levelhandlers

import (
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

func TestHandleOwnerDisconnected(t *testing.T) {
	owner := sharedtypes.OwnerID(uuid.New())
	svc := &FakeLevelService{}
	handlers := newTestHandlers(svc)

	data, err := json.Marshal(levelevents.OwnerDisconnectedPayloadV1{OwnerID: owner})
	require.NoError(t, err)

	out, err := handlers.HandleOwnerDisconnected(message.NewMessage(watermill.NewUUID(), data))
	require.NoError(t, err)
	assert.Nil(t, out)

	require.Len(t, svc.EvictedOwners, 1)
	assert.Equal(t, owner, svc.EvictedOwners[0])
}
