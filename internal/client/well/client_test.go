package well

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchUpsertPersons_ChunksAndHeaders(t *testing.T) {
	var batches [][]PersonUpsert
	var headers []http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Clone())
		var batch []PersonUpsert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		batches = append(batches, batch)
		w.Write([]byte(`{"code":0,"msg":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", "sig", "1.0")

	persons := make([]PersonUpsert, 120)
	for i := range persons {
		persons[i].SourceNo = "E" + string(rune('A'+i%26))
	}
	require.NoError(t, c.BatchUpsertPersons(context.Background(), persons))

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)
	assert.Equal(t, "key", headers[0].Get("appKey"))
	assert.Equal(t, "sig", headers[0].Get("sign"))
	assert.Equal(t, "1.0", headers[0].Get("version"))
	assert.NotEmpty(t, headers[0].Get("timestamp"))
}

func TestBatchUpsertPersons_FailedChunkDoesNotAbortRest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"code":500,"msg":"server busy"}`))
			return
		}
		w.Write([]byte(`{"code":600,"msg":"partial ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", "sig", "1.0")

	err := c.BatchUpsertPersons(context.Background(), make([]PersonUpsert, 60))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 1")
	assert.NotContains(t, err.Error(), "batch 2")
	assert.Equal(t, 2, calls)
}

func TestCall_HTTPErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("gateway down"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", "sig", "1.0")
	err := c.BatchDeletePersons(context.Background(), []string{"E001"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "gateway down", apiErr.Body)
}

func TestListDoors_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"msg":"ok","data":[{"doorId":1,"doorName":"东门1","placeName":"东大门岗亭"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", "sig", "1.0")
	doors, err := c.ListDoors(context.Background())
	require.NoError(t, err)
	require.Len(t, doors, 1)
	assert.Equal(t, 1, doors[0].DoorID)
	assert.Equal(t, "东大门岗亭", doors[0].PlaceName)
}

func TestListGateRecords_SendsWindow(t *testing.T) {
	var query map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		w.Write([]byte(`{"code":0,"msg":"ok","data":[{"flowNo":"F1","recStatus":"1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", "sig", "1.0")
	records, err := c.ListGateRecords(context.Background(), 1, 10000, 1714500000000, 1714500300000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "F1", records[0].FlowNo)
	assert.Equal(t, float64(1714500000000), query["beginTimestamp"])
	assert.Equal(t, float64(10000), query["pageSize"])
}

func TestFindDoorIDsByGateName(t *testing.T) {
	doors := []DoorInfo{
		{DoorID: 1, PlaceName: "东大门岗亭"},
		{DoorID: 2, PlaceName: "西大门岗亭"},
		{DoorID: 3, PlaceName: "东大门货运通道"},
	}
	assert.Equal(t, []int{1, 3}, FindDoorIDsByGateName("东大门", doors))
	assert.Nil(t, FindDoorIDsByGateName("南大门", doors))
	assert.Nil(t, FindDoorIDsByGateName("", doors))
	assert.Equal(t, []int{2}, FindDoorIDsByGateName(" 西大门 ", doors))
}
