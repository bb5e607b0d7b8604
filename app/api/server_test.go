package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	levelservice "github.com/skybound-club/isle-level/app/modules/level/application"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

type stubService struct {
	levels map[string]sharedtypes.Level
	top    map[sharedtypes.GroupName][]sharedtypes.BoardEntry
}

func (s *stubService) RequestCalculation(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID, opts levelservice.CalculationOptions) (levelservice.LevelOperationResult, error) {
	return levelservice.LevelOperationResult{}, nil
}

func (s *stubService) GetLevel(ctx context.Context, group sharedtypes.GroupName, owner sharedtypes.OwnerID) sharedtypes.Level {
	return s.levels[string(group)+"/"+owner.String()]
}

func (s *stubService) GetTopTen(ctx context.Context, group sharedtypes.GroupName) []sharedtypes.BoardEntry {
	return s.top[group]
}

func (s *stubService) EvictOwner(ctx context.Context, owner sharedtypes.OwnerID) int { return 0 }
func (s *stubService) LoadSnapshots(ctx context.Context) error                       { return nil }
func (s *stubService) FlushDirty(ctx context.Context)                                {}

func newTestServer(svc levelservice.Service) *httptest.Server {
	server := NewServer(":0", svc, slog.New(slog.DiscardHandler), nil)
	return httptest.NewServer(server.Handler())
}

func TestGetOwnerLevel(t *testing.T) {
	owner := sharedtypes.OwnerID(uuid.New())
	svc := &stubService{
		levels: map[string]sharedtypes.Level{
			"skyblock-main/" + owner.String(): 42,
		},
	}
	ts := newTestServer(svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/groups/skyblock-main/owners/" + owner.String() + "/level")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body levelResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, sharedtypes.Level(42), body.Level)
	assert.Equal(t, owner, body.OwnerID)
}

func TestGetOwnerLevel_UnknownOwnerReadsZero(t *testing.T) {
	ts := newTestServer(&stubService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/groups/skyblock-main/owners/" + uuid.NewString() + "/level")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body levelResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, sharedtypes.Level(0), body.Level)
}

func TestGetOwnerLevel_BadOwnerID(t *testing.T) {
	ts := newTestServer(&stubService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/groups/skyblock-main/owners/not-a-uuid/level")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTopTen(t *testing.T) {
	entries := []sharedtypes.BoardEntry{
		{OwnerID: sharedtypes.OwnerID(uuid.New()), Level: 90},
		{OwnerID: sharedtypes.OwnerID(uuid.New()), Level: 80},
	}
	svc := &stubService{
		top: map[sharedtypes.GroupName][]sharedtypes.BoardEntry{
			"skyblock-main": entries,
		},
	}
	ts := newTestServer(svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/groups/skyblock-main/top")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body topTenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, sharedtypes.Level(90), body.Entries[0].Level)
}

func TestGetTopTen_UnknownGroupIsEmptyList(t *testing.T) {
	ts := newTestServer(&stubService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/groups/never-seen/top")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body topTenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotNil(t, body.Entries)
	assert.Empty(t, body.Entries)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&stubService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
