package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EchoQ/config"
	"EchoQ/core/bus"
	"EchoQ/core/queue"
	"EchoQ/model"
)

// fakeCatalog serves a fixed set of catalog rows. It doubles as the
// existence oracle.
type fakeCatalog struct {
	rows map[int64]*model.CatalogTrack
}

func (f *fakeCatalog) FilterExisting(_ context.Context, ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := f.rows[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetByIDs(_ context.Context, ids []int64) ([]*model.CatalogTrack, error) {
	out := make([]*model.CatalogTrack, 0, len(ids))
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (*model.CatalogTrack, error) {
	return f.rows[id], nil
}

// nopSlots satisfies queue.SlotStore without persisting anything.
type nopSlots struct{}

func (nopSlots) Get(context.Context, int64) (*model.PlayerSnapshot, error) { return nil, nil }
func (nopSlots) Set(context.Context, int64, model.PlayerSnapshot) error    { return nil }
func (nopSlots) Delete(context.Context, int64) error                       { return nil }

func newTestHandler(t *testing.T, catalog *fakeCatalog) *APIHandler {
	t.Helper()
	b := bus.New()
	svc := queue.NewService(catalog, nopSlots{}, b, time.Millisecond)
	t.Cleanup(svc.Close)
	return NewAPIHandler(svc, catalog, nil, b, &config.Config{})
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), ctxUserID, int64(1))
	ctx = context.WithValue(ctx, ctxUsername, "tester")
	return req.WithContext(ctx)
}

func TestAddToQueueHandler_ResolvesTrackByID(t *testing.T) {
	h := newTestHandler(t, &fakeCatalog{rows: map[int64]*model.CatalogTrack{
		3: {ID: 3, Title: "Found", Artist: "X", AudioPath: "https://cdn.example.com/3.mp3", State: 1},
	}})

	rec := httptest.NewRecorder()
	h.AddToQueueHandler(rec, authedRequest(http.MethodPost, "/api/queue", []byte(`{"id":3}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var item model.QueueItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, int64(3), item.ID)
	assert.Equal(t, "Found", item.Title)
	assert.Equal(t, "https://cdn.example.com/3.mp3", item.AudioURL)
	assert.NotEmpty(t, item.QID)
}

func TestAddToQueueHandler_UnknownIDIsNotFound(t *testing.T) {
	h := newTestHandler(t, &fakeCatalog{rows: map[int64]*model.CatalogTrack{}})

	rec := httptest.NewRecorder()
	h.AddToQueueHandler(rec, authedRequest(http.MethodPost, "/api/queue", []byte(`{"id":99}`)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToQueueHandler_MissingIDAndURLIsBadRequest(t *testing.T) {
	h := newTestHandler(t, &fakeCatalog{rows: map[int64]*model.CatalogTrack{}})

	rec := httptest.NewRecorder()
	h.AddToQueueHandler(rec, authedRequest(http.MethodPost, "/api/queue", []byte(`{"title":"no locator"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgetPlayerHandler(t *testing.T) {
	h := newTestHandler(t, &fakeCatalog{rows: map[int64]*model.CatalogTrack{}})

	rec := httptest.NewRecorder()
	h.AddToQueueHandler(rec, authedRequest(http.MethodPost, "/api/queue",
		[]byte(`{"title":"A","audioUrl":"/a.mp3"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ForgetPlayerHandler(rec, authedRequest(http.MethodDelete, "/api/player", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetQueueHandler(rec, authedRequest(http.MethodGet, "/api/queue", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UpNext []model.QueueItem `json:"upNext"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.UpNext)
}
