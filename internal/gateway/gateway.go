package gateway

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"ByteArrayGo/internal/model"
	"ByteArrayGo/pkg/common"
	"ByteArrayGo/pkg/hash"
	"ByteArrayGo/pkg/json"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BasePath 缓冲区API前缀，与服务节点一致
const BasePath = "/bytearray/api/v1"

// Gateway 按缓冲区名做一致性哈希，把请求转发到归属节点
// 涉及多个缓冲区的操作在归属节点不同时由网关取数后本地计算
type Gateway struct {
	ring     *hash.ConsistentHash
	client   *http.Client
	basePath string
}

// New 创建网关，replicas为虚拟节点倍数
func New(replicas int, client *http.Client) *Gateway {
	if client == nil {
		// 共享连接池，减少短连接
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 1000,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 30 * time.Second,
		}
	}
	return &Gateway{
		ring:     hash.NewConsistentHash(replicas, nil),
		client:   client,
		basePath: BasePath,
	}
}

// AddNode 节点上线
func (g *Gateway) AddNode(addrs ...string) {
	g.ring.Add(addrs...)
	logrus.Infof("[Gateway] Nodes added: %v", addrs)
}

// RemoveNode 节点下线
func (g *Gateway) RemoveNode(addr string) {
	g.ring.Remove(addr)
	logrus.Infof("[Gateway] Node removed: %s", addr)
}

// Nodes 当前节点列表
func (g *Gateway) Nodes() []string {
	return g.ring.GetNodes()
}

// owner 缓冲区的归属节点
func (g *Gateway) owner(name string) (string, error) {
	node := g.ring.Get(name)
	if node == "" {
		return "", &model.APIError{Code: http.StatusServiceUnavailable, Message: "no available nodes"}
	}
	return node, nil
}

// Router 网关路由
func (g *Gateway) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		nodes := g.Nodes()
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"nodes":  nodes,
			"count":  len(nodes),
		})
	})

	api := r.Group(g.basePath)
	{
		api.POST("/buffers", g.create)
		api.GET("/buffers", g.list)
		api.GET("/buffers/:name", g.proxyByName)
		api.DELETE("/buffers/:name", g.proxyByName)
		api.GET("/buffers/:name/index/:index", g.proxyByName)
		api.GET("/buffers/:name/repr", g.proxyByName)
		api.POST("/buffers/:name/slice", g.slice)
		api.POST("/buffers/:name/concat", g.concat)
		api.POST("/buffers/:name/append", g.append)
		api.GET("/stats", g.stats)
	}
	return r
}

// create 按请求体中的name路由
func (g *Gateway) create(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, err)
		return
	}
	var req model.CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		common.Abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	g.forward(c, req.Name, body)
}

// proxyByName 按路径中的缓冲区名路由
func (g *Gateway) proxyByName(c *gin.Context) {
	g.forward(c, c.Param("name"), nil)
}

// slice 目标缓冲区与源不在同一节点时，先取切片结果再写入目标节点
func (g *Gateway) slice(c *gin.Context) {
	name := c.Param("name")
	var req model.SliceRequest
	body, err := readJSON(c, &req)
	if err != nil {
		common.Abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Target == "" || g.ring.Get(req.Target) == g.ring.Get(name) {
		g.forward(c, name, body)
		return
	}

	node, err := g.owner(name)
	if err != nil {
		fail(c, err)
		return
	}
	target := req.Target
	req.Target = ""
	var resp model.BufferResponse
	if err := g.call(c.Request.Context(), node, http.MethodPost, "/buffers/"+url.PathEscape(name)+"/slice", req, &resp); err != nil {
		fail(c, err)
		return
	}
	if err := g.store(c.Request.Context(), target, resp.Data); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(target, resp.Data)))
}

// concat 三个缓冲区同节点时直接转发，否则在网关拼接
func (g *Gateway) concat(c *gin.Context) {
	name := c.Param("name")
	var req model.ConcatRequest
	body, err := readJSON(c, &req)
	if err != nil || req.Other == "" {
		common.Abort(c, http.StatusBadRequest, "invalid request: other is required")
		return
	}
	if g.colocated(name, req.Other, req.Target) {
		g.forward(c, name, body)
		return
	}

	ctx := c.Request.Context()
	left, err := g.fetch(ctx, name)
	if err != nil {
		fail(c, err)
		return
	}
	right, err := g.fetch(ctx, req.Other)
	if err != nil {
		fail(c, err)
		return
	}
	result := left.Concat(right)
	if req.Target != "" {
		if err := g.store(ctx, req.Target, result); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(req.Target, result)))
}

// append 跨节点追加为读-改-写，不保证与其他写入的原子性
func (g *Gateway) append(c *gin.Context) {
	name := c.Param("name")
	var req model.AppendRequest
	body, err := readJSON(c, &req)
	if err != nil || req.Other == "" {
		common.Abort(c, http.StatusBadRequest, "invalid request: other is required")
		return
	}
	if g.colocated(name, req.Other, "") {
		g.forward(c, name, body)
		return
	}

	ctx := c.Request.Context()
	other, err := g.fetch(ctx, req.Other)
	if err != nil {
		fail(c, err)
		return
	}
	ba, err := g.fetch(ctx, name)
	if err != nil {
		fail(c, err)
		return
	}
	ba.Append(other)
	if err := g.store(ctx, name, ba); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(name, ba)))
}

// list 汇总所有节点的缓冲区名
func (g *Gateway) list(c *gin.Context) {
	names := make([]string, 0)
	for _, node := range g.Nodes() {
		var resp model.ListResponse
		if err := g.call(c.Request.Context(), node, http.MethodGet, "/buffers", nil, &resp); err != nil {
			logrus.Errorf("[Gateway] Failed to list buffers on node %s: %v", node, err)
			continue
		}
		names = append(names, resp.Names...)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.ListResponse{Names: names, Count: len(names)}))
}

// nodeStats 聚合所需的节点统计字段
type nodeStats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Repository  struct {
		Buffers    int64 `json:"buffers"`
		TotalBytes int64 `json:"total_bytes"`
	} `json:"repository"`
}

// stats 拉取所有节点统计并做简单聚合
func (g *Gateway) stats(c *gin.Context) {
	nodes := g.Nodes()
	perNode := make(map[string]json.RawMessage, len(nodes))
	var agg nodeStats

	for _, node := range nodes {
		var raw json.RawMessage
		if err := g.call(c.Request.Context(), node, http.MethodGet, "/stats", nil, &raw); err != nil {
			logrus.Errorf("[Gateway] Failed to get stats from node %s: %v", node, err)
			continue
		}
		perNode[node] = raw

		var s nodeStats
		if err := json.Unmarshal(raw, &s); err != nil {
			logrus.Warnf("[Gateway] Unexpected stats from node %s: %v", node, err)
			continue
		}
		agg.CacheHits += s.CacheHits
		agg.CacheMisses += s.CacheMisses
		agg.Repository.Buffers += s.Repository.Buffers
		agg.Repository.TotalBytes += s.Repository.TotalBytes
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"nodes":    nodes,
		"per_node": perNode,
		"aggregate": gin.H{
			"buffers":      agg.Repository.Buffers,
			"total_bytes":  agg.Repository.TotalBytes,
			"cache_hits":   agg.CacheHits,
			"cache_misses": agg.CacheMisses,
		},
	}))
}

// forward 把原始请求转发给name的归属节点，body为nil时读取请求体
func (g *Gateway) forward(c *gin.Context, name string, body []byte) {
	node, err := g.owner(name)
	if err != nil {
		fail(c, err)
		return
	}
	if body == nil && c.Request.Body != nil {
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			fail(c, err)
			return
		}
	}

	targetURL := "http://" + node + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}
	logrus.Debugf("[Gateway] Routing request to: %s (key: %s)", targetURL, name)

	proxyReq, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, bytes.NewReader(body))
	if err != nil {
		fail(c, err)
		return
	}
	for key, values := range c.Request.Header {
		for _, value := range values {
			proxyReq.Header.Add(key, value)
		}
	}

	resp, err := g.client.Do(proxyReq)
	if err != nil {
		logrus.Errorf("[Gateway] Failed to proxy request to %s: %v", targetURL, err)
		common.Abort(c, http.StatusBadGateway, "failed to proxy request: "+err.Error())
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		common.Abort(c, http.StatusBadGateway, "failed to read node response: "+err.Error())
		return
	}
	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
}

// colocated 非空的缓冲区名是否都落在同一节点
func (g *Gateway) colocated(name string, others ...string) bool {
	node := g.ring.Get(name)
	for _, other := range others {
		if other != "" && g.ring.Get(other) != node {
			return false
		}
	}
	return true
}

// readJSON 读取请求体并解析，返回原始内容供转发
func readJSON(c *gin.Context, v interface{}) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return body, nil
	}
	return body, json.Unmarshal(body, v)
}

// fail 写错误响应
func fail(c *gin.Context, err error) {
	apiErr := model.FromError(err)
	if apiErr.Code >= http.StatusInternalServerError {
		logrus.Errorf("[Gateway] Request failed: %v", err)
	}
	common.Abort(c, apiErr.Code, apiErr.Message)
}
