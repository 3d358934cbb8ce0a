package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"EchoQ/model"

	"github.com/go-redis/redis/v8"
)

// SnapshotStore 是按用户身份分槽的播放器状态持久化存储。
// 不同身份的键互不冲突，匿名会话不写入。
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration // 0 表示不过期
}

// NewSnapshotStore 创建基于Redis的快照存储
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// snapshotKey 根据用户ID生成快照的Redis键
func snapshotKey(identity int64) string {
	return fmt.Sprintf("queue:state:%d", identity)
}

// Get 读取指定身份的快照。没有快照或快照损坏时返回 nil, nil，
// 损坏的快照按"不存在"处理，引擎从默认状态启动。
func (s *SnapshotStore) Get(ctx context.Context, identity int64) (*model.PlayerSnapshot, error) {
	if s.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := s.client.Get(ctx, snapshotKey(identity)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap model.PlayerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// 损坏的快照视为不存在
		return nil, nil
	}
	return &snap, nil
}

// Set 写入指定身份的快照
func (s *SnapshotStore) Set(ctx context.Context, identity int64, snap model.PlayerSnapshot) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}
	return nil
}

// Delete 删除指定身份的快照
func (s *SnapshotStore) Delete(ctx context.Context, identity int64) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := s.client.Del(ctx, snapshotKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
