package etcd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const servicesPrefix = "/services/"

// Client etcd客户端
type Client struct {
	cli     *clientv3.Client
	timeout time.Duration

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID // 已注册服务key -> 租约
}

// ServiceKey 服务注册使用的key
func ServiceKey(serviceName, serviceAddr string) string {
	return servicesPrefix + serviceName + "/" + serviceAddr
}

// NewClient 创建etcd客户端
func NewClient(endpoints []string) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are empty")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	return &Client{
		cli:     cli,
		timeout: 5 * time.Second,
		leases:  make(map[string]clientv3.LeaseID),
	}, nil
}

// Register 注册服务，租约在ctx结束前持续续期
func (c *Client) Register(ctx context.Context, serviceName, serviceAddr string, ttl int64) error {
	grantCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lease, err := c.cli.Grant(grantCtx, ttl)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	key := ServiceKey(serviceName, serviceAddr)
	if _, err = c.cli.Put(grantCtx, key, serviceAddr, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := c.cli.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	// 消费心跳响应，通道关闭说明租约失效或ctx结束
	go func() {
		for range ch {
		}
		logrus.Warnf("[Etcd] Keepalive stopped: %s", key)
	}()

	c.mu.Lock()
	c.leases[key] = lease.ID
	c.mu.Unlock()

	logrus.Infof("[Etcd] Service registered: %s -> %s", key, serviceAddr)
	return nil
}

// Deregister 注销服务并撤销租约
func (c *Client) Deregister(ctx context.Context, serviceName, serviceAddr string) error {
	key := ServiceKey(serviceName, serviceAddr)

	c.mu.Lock()
	leaseID, ok := c.leases[key]
	delete(c.leases, key)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if ok {
		if _, err := c.cli.Revoke(ctx, leaseID); err != nil {
			return fmt.Errorf("failed to revoke lease: %w", err)
		}
	} else if _, err := c.cli.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	logrus.Infof("[Etcd] Service deregistered: %s", key)
	return nil
}

// Discover 发现服务
func (c *Client) Discover(ctx context.Context, serviceName string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prefix := servicesPrefix + serviceName + "/"
	resp, err := c.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get keys with prefix %s: %w", prefix, err)
	}

	services := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		services = append(services, string(kv.Value))
	}
	return services, nil
}

// AddrFromKey 从服务key中取出地址部分
func AddrFromKey(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// WatchService 监听服务节点上下线，ctx结束时停止
// 删除事件不携带value，地址从key中解析
func (c *Client) WatchService(ctx context.Context, serviceName string, onPut, onDelete func(addr string)) {
	prefix := servicesPrefix + serviceName + "/"
	go func() {
		watchChan := c.cli.Watch(ctx, prefix, clientv3.WithPrefix())
		for watchResp := range watchChan {
			for _, event := range watchResp.Events {
				addr := AddrFromKey(string(event.Kv.Key))
				if event.Type == clientv3.EventTypeDelete {
					logrus.Infof("[Etcd] Watch event: DELETE, key: %s", event.Kv.Key)
					onDelete(addr)
					continue
				}
				logrus.Infof("[Etcd] Watch event: PUT, key: %s", event.Kv.Key)
				onPut(addr)
			}
		}
	}()
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.cli.Close()
}
