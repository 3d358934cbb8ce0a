package bus

import (
	"sync"

	"EchoQ/model"
)

// Topic 事件主题
type Topic string

const (
	// 队列引擎消费的事件
	TopicIdentityChanged Topic = "identity_changed" // 活跃身份变更，触发快照恢复
	TopicSessionEnded    Topic = "session_ended"    // 会话结束，触发完全重置
	TopicLibraryChanged  Topic = "library_changed"  // 曲库变更，触发轻量校验
	TopicCatalogUpdated  Topic = "catalog_updated"  // 曲目元数据更新
	TopicCatalogDeleted  Topic = "catalog_deleted"  // 曲目被删除

	// 队列引擎发出的事件
	TopicTracksDeleted Topic = "tracks_deleted" // 轻量校验发现曲目已消失
)

// IdentityChanged carries the newly active identity; zero means none.
type IdentityChanged struct {
	Identity int64 `json:"identity"`
}

// SessionEnded is published when a user's session terminates.
type SessionEnded struct {
	Identity int64 `json:"identity"`
}

// LibraryChanged signals that the backing catalog may have changed.
type LibraryChanged struct{}

// CatalogItemsUpdated carries fresh metadata for existing tracks. Fields
// present overwrite, absent fields are preserved by the consumer.
type CatalogItemsUpdated struct {
	Items []model.Track `json:"items"`
}

// CatalogItemsDeleted carries ids of tracks removed from the catalog.
type CatalogItemsDeleted struct {
	IDs []int64 `json:"ids"`
}

// TracksDeleted is emitted by reconciliation when previously held track ids
// are no longer confirmed by the catalog.
type TracksDeleted struct {
	Identity int64   `json:"identity"`
	IDs      []int64 `json:"ids"`
}

// Handler 事件处理函数
type Handler func(event interface{})

type subscription struct {
	id int64
	fn Handler
}

// Bus 进程内发布/订阅通道。分发是同步的：Publish 按订阅顺序依次调用
// 处理函数，与队列引擎的单逻辑线程模型一致。
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID int64
}

// New 创建事件总线
func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe 订阅主题，返回取消订阅函数
func (b *Bus) Subscribe(topic Topic, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, sub := range list {
			if sub.id == id {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// Publish 同步分发事件到该主题的所有订阅者
func (b *Bus) Publish(topic Topic, event interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[topic]))
	for i, sub := range b.subs[topic] {
		handlers[i] = sub.fn
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
}
