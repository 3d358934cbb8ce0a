package server

import (
	"encoding/json"
	"net/http"

	"EchoQ/core/bus"
	"EchoQ/logger"
	"EchoQ/model"
	"EchoQ/storage"
)

// CatalogEventRequest 曲库变更通知请求体
type CatalogEventRequest struct {
	IDs []int64 `json:"ids"`
}

// toTrack 将曲库行转换为引擎使用的 Track，对象键转为可播放URL
func toTrack(r *http.Request, ct *model.CatalogTrack) model.Track {
	return model.Track{
		ID:       ct.ID,
		Title:    ct.Title,
		Artist:   ct.Artist,
		Album:    ct.Album,
		CoverURL: ct.CoverPath,
		AudioURL: storage.ResolveLocator(r.Context(), ct.AudioPath),
		Duration: ct.Duration,
		AlbumID:  ct.AlbumID,
	}
}

// CatalogUpdatedHandler 曲目元数据变更通知：按ID读取最新元数据并广播给
// 所有在线的队列引擎做非破坏性合并。
func (h *APIHandler) CatalogUpdatedHandler(w http.ResponseWriter, r *http.Request) {
	var req CatalogEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	rows, err := h.catalog.GetByIDs(r.Context(), req.IDs)
	if err != nil {
		logger.Error("failed to load updated tracks", logger.ErrorField(err))
		http.Error(w, "Failed to load tracks", http.StatusInternalServerError)
		return
	}

	items := make([]model.Track, 0, len(rows))
	for _, row := range rows {
		items = append(items, toTrack(r, row))
	}

	h.bus.Publish(bus.TopicCatalogUpdated, bus.CatalogItemsUpdated{Items: items})
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": len(items)})
}

// CatalogDeletedHandler 曲目删除通知：从所有队列引擎中移除对应条目
func (h *APIHandler) CatalogDeletedHandler(w http.ResponseWriter, r *http.Request) {
	var req CatalogEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.bus.Publish(bus.TopicCatalogDeleted, bus.CatalogItemsDeleted{IDs: req.IDs})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LibraryChangedHandler 曲库整体变更通知：触发各引擎的轻量校验
func (h *APIHandler) LibraryChangedHandler(w http.ResponseWriter, r *http.Request) {
	h.bus.Publish(bus.TopicLibraryChanged, bus.LibraryChanged{})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
