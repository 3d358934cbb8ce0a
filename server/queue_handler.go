package server

import (
	"encoding/json"
	"net/http"

	"EchoQ/model"

	"github.com/gorilla/mux"
)

// GetQueueHandler 返回即将播放的列表（手动队列在前，自动队列在后）
func (h *APIHandler) GetQueueHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"upNext": eng.UpNext(),
	})
}

// AddToQueueHandler 将曲目追加到手动队列尾部。只带 id 的请求体会从
// 曲库读取元数据并生成可播放URL。
func (h *APIHandler) AddToQueueHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	var track model.Track
	if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if track.AudioURL == "" {
		if track.ID == 0 {
			http.Error(w, "Track id or audio URL is required", http.StatusBadRequest)
			return
		}
		row, err := h.catalog.GetByID(r.Context(), track.ID)
		if err != nil {
			http.Error(w, "Failed to load track", http.StatusInternalServerError)
			return
		}
		if row == nil {
			http.Error(w, "Track not found", http.StatusNotFound)
			return
		}
		track = toTrack(r, row)
	}

	item := eng.AddToQueue(track)
	writeJSON(w, http.StatusCreated, item)
}

// RemoveFromQueueHandler 按qid从队列移除，qid不存在时也返回成功
func (h *APIHandler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	qid := mux.Vars(r)["qid"]
	eng.RemoveFromQueue(qid)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MoveManualRequest 手动队列重排请求体
type MoveManualRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MoveManualHandler 调整手动队列顺序
func (h *APIHandler) MoveManualHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	var req MoveManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	eng.MoveManual(req.From, req.To)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"upNext": eng.UpNext(),
	})
}

// ClearQueueHandler 清空队列；keepCurrent=false 时完全重置播放器
func (h *APIHandler) ClearQueueHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	keepCurrent := r.URL.Query().Get("keepCurrent") == "true"
	eng.ClearQueue(keepCurrent)
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// PlayNowHandler 立即播放队列中的指定项
func (h *APIHandler) PlayNowHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	qid := mux.Vars(r)["qid"]
	eng.PlayNow(qid)
	writeJSON(w, http.StatusOK, eng.Snapshot())
}
