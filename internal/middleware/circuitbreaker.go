package middleware

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"ByteArrayGo/pkg/common"
	"ByteArrayGo/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CircuitState 熔断器状态
type CircuitState int

const (
	StateClosed   CircuitState = iota // 关闭状态（正常）
	StateOpen                         // 打开状态（熔断）
	StateHalfOpen                     // 半开状态（探测）
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// ErrCircuitBreakerOpen 熔断器打开
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreaker 熔断器
// 关闭状态按窗口统计失败率；打开状态拒绝所有请求；半开状态限制并发探测数，
// 连续成功RecoverAfter次恢复，任一失败重新打开
type CircuitBreaker struct {
	name string
	cfg  config.BreakerConfig

	mu          sync.Mutex
	state       CircuitState
	changedAt   time.Time
	windowStart time.Time
	requests    int
	failures    int
	probes      int    // 半开状态下未完成的探测请求
	recovered   int    // 半开状态下连续成功次数
	generation  uint64 // 每次状态切换加一
	rejected    int64
}

// BreakerStats 熔断器统计
type BreakerStats struct {
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Requests    int     `json:"requests"`
	Failures    int     `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
	Rejected    int64   `json:"rejected"`
	ChangedAt   string  `json:"state_changed_at"`
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, cfg config.BreakerConfig) *CircuitBreaker {
	now := time.Now()
	return &CircuitBreaker{
		name:        name,
		cfg:         cfg,
		state:       StateClosed,
		changedAt:   now,
		windowStart: now,
	}
}

// Call 执行请求，熔断时直接返回 ErrCircuitBreakerOpen
func (cb *CircuitBreaker) Call(fn func() error) error {
	gen, ok := cb.allowRequest()
	if !ok {
		return ErrCircuitBreakerOpen
	}
	err := fn()
	cb.recordResult(gen, err == nil)
	return err
}

// allowRequest 检查是否放行，半开状态下放行即占用一个探测名额，
// 返回放行时的状态代数，结果需带着它回报
func (cb *CircuitBreaker) allowRequest() (uint64, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.changedAt) < cb.cfg.OpenTimeout {
			cb.rejected++
			return cb.generation, false
		}
		cb.setState(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenRequests {
			cb.rejected++
			return cb.generation, false
		}
		cb.probes++
	}
	return cb.generation, true
}

// recordResult 记录请求结果，放行后状态已切换过的结果直接丢弃
func (cb *CircuitBreaker) recordResult(gen uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}

	switch cb.state {
	case StateHalfOpen:
		if cb.probes > 0 {
			cb.probes--
		}
		if !success {
			cb.setState(StateOpen)
			return
		}
		cb.recovered++
		if cb.recovered >= cb.cfg.RecoverAfter {
			cb.setState(StateClosed)
		}
	case StateClosed:
		if time.Since(cb.windowStart) > cb.cfg.Window {
			cb.windowStart = time.Now()
			cb.requests, cb.failures = 0, 0
		}
		cb.requests++
		if !success {
			cb.failures++
		}
		if cb.requests >= cb.cfg.MinRequests &&
			float64(cb.failures)/float64(cb.requests) >= cb.cfg.FailureRatio {
			cb.setState(StateOpen)
		}
	}
}

// setState 切换状态并清空计数，调用方需持有锁
func (cb *CircuitBreaker) setState(state CircuitState) {
	if cb.state == state {
		return
	}
	prev := cb.state
	now := time.Now()
	cb.state = state
	cb.changedAt = now
	cb.windowStart = now
	cb.requests, cb.failures = 0, 0
	cb.probes, cb.recovered = 0, 0
	cb.generation++

	if state == StateOpen {
		logrus.Warnf("[CircuitBreaker] %s: %s -> %s", cb.name, prev, state)
	} else {
		logrus.Infof("[CircuitBreaker] %s: %s -> %s", cb.name, prev, state)
	}
}

// State 获取当前状态
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats 获取统计信息
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failureRate := 0.0
	if cb.requests > 0 {
		failureRate = float64(cb.failures) / float64(cb.requests) * 100
	}
	return BreakerStats{
		Name:        cb.name,
		State:       cb.state.String(),
		Requests:    cb.requests,
		Failures:    cb.failures,
		FailureRate: failureRate,
		Rejected:    cb.rejected,
		ChangedAt:   cb.changedAt.Format("2006-01-02 15:04:05"),
	}
}

// CircuitBreakers 按路由分类的熔断器集合
type CircuitBreakers struct {
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakers 为每个路由分类创建熔断器
func NewCircuitBreakers(cfg config.BreakerConfig) *CircuitBreakers {
	m := &CircuitBreakers{
		breakers: make(map[string]*CircuitBreaker, len(routeClasses)),
	}
	for _, class := range routeClasses {
		m.breakers[class] = NewCircuitBreaker(class, cfg)
	}
	return m
}

// Middleware 熔断器中间件，5xx视为失败
func (m *CircuitBreakers) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		breaker := m.breakers[routeClass(c)]

		gen, ok := breaker.allowRequest()
		if !ok {
			logrus.Warnf("[CircuitBreaker] Request blocked: %s %s", c.Request.Method, c.Request.URL.Path)
			common.Abort(c, http.StatusServiceUnavailable, "Service Unavailable - Circuit breaker is open")
			return
		}

		c.Next()

		breaker.recordResult(gen, c.Writer.Status() < http.StatusInternalServerError)
	}
}

// Stats 获取所有熔断器统计
func (m *CircuitBreakers) Stats() map[string]BreakerStats {
	stats := make(map[string]BreakerStats, len(m.breakers))
	for class, breaker := range m.breakers {
		stats[class] = breaker.Stats()
	}
	return stats
}
