package server

import (
	"encoding/json"
	"net/http"

	"EchoQ/core/queue"
	"EchoQ/model"
)

// GetPlayerHandler 返回当前播放器状态
func (h *APIHandler) GetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	snap := eng.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current": snap.Current,
		"playing": snap.Playing,
		"shuffle": snap.Shuffle,
		"repeat":  snap.Repeat,
		"source":  snap.Source,
		"upNext":  snap.UpNext(),
	})
}

// ForgetPlayerHandler 丢弃用户的全部播放状态：会话重置且持久化快照被删除，
// 下次登录从默认状态开始。
func (h *APIHandler) ForgetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.svc.Forget(r.Context(), userID); err != nil {
		http.Error(w, "Failed to forget player state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PlaySongHandler 播放单曲
func (h *APIHandler) PlaySongHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	var req queue.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	eng.PlaySong(req)
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// PlayFromListRequest 从歌单/专辑开始播放的请求体
type PlayFromListRequest struct {
	Source       model.SourceRef `json:"source"`
	Tracks       []model.Track   `json:"tracks"`
	StartTrackID int64           `json:"startTrackId,omitempty"`
}

// PlayFromListHandler 以给定曲目列表建立新的集合上下文并开始播放
func (h *APIHandler) PlayFromListHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}

	var req PlayFromListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	eng.PlayFromList(req.Source, req.Tracks, req.StartTrackID)
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// NextHandler 切到下一首
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	eng.Next()
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// PrevHandler 回到上一首
func (h *APIHandler) PrevHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	eng.Prev()
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// TrackEndedHandler 当前曲目自然播放结束
func (h *APIHandler) TrackEndedHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	eng.TrackEnded()
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// ToggleShuffleHandler 切换随机播放
func (h *APIHandler) ToggleShuffleHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	eng.ToggleShuffle()
	writeJSON(w, http.StatusOK, eng.Snapshot())
}

// CycleRepeatHandler 切换单曲循环
func (h *APIHandler) CycleRepeatHandler(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	eng.CycleRepeat()
	writeJSON(w, http.StatusOK, eng.Snapshot())
}
