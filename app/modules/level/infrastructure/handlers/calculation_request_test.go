package levelhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	levelevents "github.com/skybound-club/isle-level/app/shared/events/level"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
	"github.com/skybound-club/isle-level/app/shared/utils"
	"github.com/skybound-club/isle-level/app/shared/utils/results"
)

func requestedMessage(t *testing.T, payload levelevents.CalculationRequestedPayloadV1) *message.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	msg := message.NewMessage(watermill.NewUUID(), data)
	middleware.SetCorrelationID("corr-123", msg)
	return msg
}

func TestHandleCalculationRequested_Success(t *testing.T) {
	group := sharedtypes.GroupName("skyblock-main")
	owner := sharedtypes.OwnerID(uuid.New())

	var gotOpts levelservice.CalculationOptions
	svc := &FakeLevelService{
		RequestCalculationFunc: func(ctx context.Context, g sharedtypes.GroupName, o sharedtypes.OwnerID, opts levelservice.CalculationOptions) (levelservice.LevelOperationResult, error) {
			assert.Equal(t, group, g)
			assert.Equal(t, owner, o)
			gotOpts = opts
			return results.SuccessResult[levelevents.CalculationSucceededPayloadV1, levelevents.CalculationFailedPayloadV1](levelevents.CalculationSucceededPayloadV1{
				GroupName:    g,
				OwnerID:      o,
				Results:      sharedtypes.Results{Level: 12},
				LevelChanged: true,
			}), nil
		},
	}
	handlers := newTestHandlers(svc)

	msg := requestedMessage(t, levelevents.CalculationRequestedPayloadV1{
		GroupName:  group,
		OwnerID:    owner,
		NotifyUser: true,
		Force:      true,
	})

	out, err := handlers.HandleCalculationRequested(msg)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.True(t, gotOpts.NotifyUser)
	assert.True(t, gotOpts.Force)
	assert.False(t, gotOpts.RecordInitial)

	assert.Equal(t, levelevents.CalculationSucceeded, out[0].Metadata.Get(utils.TopicMetadataKey))
	assert.Equal(t, "corr-123", middleware.MessageCorrelationID(out[0]))

	var published levelevents.CalculationSucceededPayloadV1
	require.NoError(t, json.Unmarshal(out[0].Payload, &published))
	assert.Equal(t, sharedtypes.Level(12), published.Results.Level)
}

func TestHandleCalculationRequested_Failure(t *testing.T) {
	owner := sharedtypes.OwnerID(uuid.New())
	svc := &FakeLevelService{
		RequestCalculationFunc: func(ctx context.Context, g sharedtypes.GroupName, o sharedtypes.OwnerID, opts levelservice.CalculationOptions) (levelservice.LevelOperationResult, error) {
			return results.FailureResult[levelevents.CalculationSucceededPayloadV1](levelevents.CalculationFailedPayloadV1{
				GroupName: g,
				OwnerID:   o,
				Reason:    levelservice.ReasonUnknownPlayer,
			}), nil
		},
	}
	handlers := newTestHandlers(svc)

	out, err := handlers.HandleCalculationRequested(requestedMessage(t, levelevents.CalculationRequestedPayloadV1{
		GroupName: "skyblock-main",
		OwnerID:   owner,
	}))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, levelevents.CalculationFailed, out[0].Metadata.Get(utils.TopicMetadataKey))

	var published levelevents.CalculationFailedPayloadV1
	require.NoError(t, json.Unmarshal(out[0].Payload, &published))
	assert.Equal(t, levelservice.ReasonUnknownPlayer, published.Reason)
}

func TestHandleCalculationRequested_ServiceError(t *testing.T) {
	svc := &FakeLevelService{
		RequestCalculationFunc: func(ctx context.Context, g sharedtypes.GroupName, o sharedtypes.OwnerID, opts levelservice.CalculationOptions) (levelservice.LevelOperationResult, error) {
			return levelservice.LevelOperationResult{}, errors.New("database down")
		},
	}
	handlers := newTestHandlers(svc)

	out, err := handlers.HandleCalculationRequested(requestedMessage(t, levelevents.CalculationRequestedPayloadV1{
		GroupName: "skyblock-main",
		OwnerID:   sharedtypes.OwnerID(uuid.New()),
	}))
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestHandleCalculationRequested_MalformedPayload(t *testing.T) {
	handlers := newTestHandlers(&FakeLevelService{})

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	out, err := handlers.HandleCalculationRequested(msg)
	require.Error(t, err)
	assert.Nil(t, out)
}
