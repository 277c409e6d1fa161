package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// Publisher 把审计记录以事件形式转发给外部消费方（SIEM、报表等）。
// 与 Sink 一样是尽力而为：转发失败不影响动作结果。
type Publisher interface {
	Publish(ctx context.Context, record Record) error
	Close() error
}

// NopPublisher 在未配置事件通道时使用。
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, _ Record) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// RedisPublisherConfig 描述 Redis 事件通道的连接参数。
type RedisPublisherConfig struct {
	Address  string
	Password string
	DB       int
	Stream   string
}

// RedisPublisher 把审计事件写入 Redis list，由外部消费方拉取。
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher 创建 Redis 事件通道。
func NewRedisPublisher(cfg RedisPublisherConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	stream := cfg.Stream
	if stream == "" {
		stream = "erpassist:audit"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisPublisher{client: client, stream: stream}, nil
}

// Publish 实现 Publisher 接口。
func (p *RedisPublisher) Publish(ctx context.Context, record Record) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化审计事件失败: %w", err)
	}
	if err := p.client.LPush(ctx, p.stream, encoded).Err(); err != nil {
		return fmt.Errorf("Redis 发布审计事件失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// RabbitMQPublisherConfig 描述 RabbitMQ 事件通道的连接参数。
type RabbitMQPublisherConfig struct {
	URL        string
	Queue      string
	Durable    bool
	AutoDelete bool
}

// RabbitMQPublisher 把审计事件投递到 RabbitMQ 队列。
type RabbitMQPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQPublisher 创建 RabbitMQ 事件通道。
func NewRabbitMQPublisher(cfg RabbitMQPublisherConfig) (*RabbitMQPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "erpassist.audit"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建 RabbitMQ channel 失败: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, cfg.Durable, cfg.AutoDelete, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// Publish 实现 Publisher 接口。
func (p *RabbitMQPublisher) Publish(ctx context.Context, record Record) error {
	if p == nil || p.ch == nil {
		return errors.New("RabbitMQ 事件通道未初始化")
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化审计事件失败: %w", err)
	}
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        encoded,
	})
}

// Close 关闭 RabbitMQ 连接。
func (p *RabbitMQPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
