package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// RedisStoreConfig 描述 Redis 会话后端的连接参数。
type RedisStoreConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	// TTL 为 0 时会话永不过期。
	TTL time.Duration
}

// RedisStore 把会话保存在 Redis：每个会话一个 JSON 键，
// 每个用户一个按活跃时间打分的有序集合作为索引。
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 会话后端。
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "erpassist"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisStore) userIndexKey(user string) string {
	return s.prefix + ":user_sessions:" + user
}

// Create 实现 Store 接口。
func (s *RedisStore) Create(ctx context.Context, user, title string) (*Session, error) {
	if user == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "会话用户不能为空")
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:            NewID(),
		User:          user,
		Title:         title,
		Status:        "Active",
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get 返回会话。
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, xerrors.New(CodeSessionNotFound, "会话不存在: "+id)
		}
		return nil, xerrors.Wrap(CodeSessionStorage, err, "读取会话失败")
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, xerrors.Wrap(CodeSessionStorage, err, "解析会话失败")
	}
	return &sess, nil
}

// AppendMessage 向会话追加消息。
func (s *RedisStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastMessageAt = msg.Timestamp
	return s.save(ctx, sess)
}

// ListByUser 返回用户的会话摘要，按最近活跃倒序。
func (s *RedisStore) ListByUser(ctx context.Context, user string) ([]Session, error) {
	ids, err := s.client.ZRevRange(ctx, s.userIndexKey(user), 0, -1).Result()
	if err != nil {
		return nil, xerrors.Wrap(CodeSessionStorage, err, "读取会话索引失败")
	}
	results := make([]Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			// 索引里残留的过期会话直接跳过。
			if xerrors.CodeOf(err) == CodeSessionNotFound {
				continue
			}
			return nil, err
		}
		sess.Messages = nil
		results = append(results, *sess)
	}
	return results, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session) error {
	encoded, err := json.Marshal(sess)
	if err != nil {
		return xerrors.Wrap(CodeSessionStorage, err, "序列化会话失败")
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sess.ID), encoded, s.ttl)
	pipe.ZAdd(ctx, s.userIndexKey(sess.User), redis.Z{
		Score:  float64(sess.LastMessageAt.UnixNano()),
		Member: sess.ID,
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.userIndexKey(sess.User), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return xerrors.Wrap(CodeSessionStorage, err, "写入会话失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
