package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"ByteArrayGo/internal/cache/lru"
	"ByteArrayGo/internal/handler"
	"ByteArrayGo/internal/model"
	"ByteArrayGo/internal/repository"
	"ByteArrayGo/internal/service"
	"ByteArrayGo/pkg/json"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type cluster struct {
	gw    *Gateway
	repos map[string]*repository.MemoryRepository // 节点地址 -> 仓库
}

// newCluster 启动n个缓冲区节点并加入网关
func newCluster(t *testing.T, n int) *cluster {
	t.Helper()

	cl := &cluster{gw: New(50, nil), repos: make(map[string]*repository.MemoryRepository)}
	for i := 0; i < n; i++ {
		repo := repository.NewMemoryRepository(lru.NewCache(0, 0, nil))
		r := gin.New()
		handler.NewBufferHandler(service.NewBufferService(repo, 0, 0)).Register(r.Group(BasePath))

		srv := httptest.NewServer(r)
		t.Cleanup(srv.Close)

		addr := strings.TrimPrefix(srv.URL, "http://")
		cl.repos[addr] = repo
		cl.gw.AddNode(addr)
	}
	return cl
}

// namesOnDifferentNodes 找出归属节点互不相同的两个缓冲区名
func (cl *cluster) namesOnDifferentNodes(t *testing.T) (string, string) {
	t.Helper()
	first := "buf-0"
	for i := 1; i < 1000; i++ {
		name := "buf-" + strconv.Itoa(i)
		if cl.gw.ring.Get(name) != cl.gw.ring.Get(first) {
			return first, name
		}
	}
	t.Fatal("no names on different nodes")
	return "", ""
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func createText(t *testing.T, r http.Handler, name, text string) {
	t.Helper()
	code, env := do(t, r, http.MethodPost, BasePath+"/buffers",
		`{"name":"`+name+`","source":{"kind":"text","value":"`+text+`"}}`)
	require.Equal(t, http.StatusOK, code, env.Message)
}

func bufferData(t *testing.T, env envelope) []byte {
	t.Helper()
	var resp model.BufferResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotNil(t, resp.Data)
	return resp.Data.Data()
}

func TestGatewayRoutesByName(t *testing.T) {
	t.Parallel()

	cl := newCluster(t, 2)
	r := cl.gw.Router()
	a, b := cl.namesOnDifferentNodes(t)

	createText(t, r, a, "hello")
	createText(t, r, b, "world")

	// 每个缓冲区只存在于归属节点
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for addr, repo := range cl.repos {
		names, err := repo.List(ctx)
		require.NoError(t, err)
		for _, name := range names {
			assert.Equal(t, cl.gw.ring.Get(name), addr, name)
		}
	}

	code, env := do(t, r, http.MethodGet, BasePath+"/buffers/"+a, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", string(bufferData(t, env)))

	code, env = do(t, r, http.MethodGet, BasePath+"/buffers/"+b+"/index/-1", "")
	require.Equal(t, http.StatusOK, code)
	var idx model.IndexResponse
	require.NoError(t, json.Unmarshal(env.Data, &idx))
	assert.Equal(t, byte('d'), idx.Value)

	code, env = do(t, r, http.MethodGet, BasePath+"/buffers", "")
	require.Equal(t, http.StatusOK, code)
	var list model.ListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	if diff := cmp.Diff([]string{a, b}, list.Names); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	code, _ = do(t, r, http.MethodDelete, BasePath+"/buffers/"+a, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, r, http.MethodGet, BasePath+"/buffers/"+a, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGatewayCrossNodeOperations(t *testing.T) {
	t.Parallel()

	cl := newCluster(t, 2)
	r := cl.gw.Router()
	a, b := cl.namesOnDifferentNodes(t)

	createText(t, r, a, "abc")
	createText(t, r, b, "XYZ")

	// 拼接结果写到b的节点
	target := b + "-copy"
	for cl.gw.ring.Get(target) == cl.gw.ring.Get(a) {
		target += "x"
	}
	code, env := do(t, r, http.MethodPost, BasePath+"/buffers/"+a+"/concat",
		`{"other":"`+b+`","target":"`+target+`"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "abcXYZ", string(bufferData(t, env)))

	code, env = do(t, r, http.MethodGet, BasePath+"/buffers/"+target, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "abcXYZ", string(bufferData(t, env)))

	code, env = do(t, r, http.MethodPost, BasePath+"/buffers/"+a+"/append", `{"other":"`+b+`"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "abcXYZ", string(bufferData(t, env)))

	code, env = do(t, r, http.MethodPost, BasePath+"/buffers/"+a+"/slice",
		`{"start":null,"stop":null,"step":-1,"target":"`+target+`"}`)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "ZYXcba", string(bufferData(t, env)))

	code, env = do(t, r, http.MethodGet, BasePath+"/buffers/"+target, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ZYXcba", string(bufferData(t, env)))

	code, _ = do(t, r, http.MethodPost, BasePath+"/buffers/"+a+"/concat", `{"other":"missing-`+b+`"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGatewayStats(t *testing.T) {
	t.Parallel()

	cl := newCluster(t, 2)
	r := cl.gw.Router()
	a, b := cl.namesOnDifferentNodes(t)
	createText(t, r, a, "12345")
	createText(t, r, b, "678")

	code, env := do(t, r, http.MethodGet, BasePath+"/stats", "")
	require.Equal(t, http.StatusOK, code)

	var stats struct {
		Nodes     []string `json:"nodes"`
		Aggregate struct {
			Buffers    int64 `json:"buffers"`
			TotalBytes int64 `json:"total_bytes"`
		} `json:"aggregate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Len(t, stats.Nodes, 2)
	assert.Equal(t, int64(2), stats.Aggregate.Buffers)
	// memory仓库的字节数包含key长度
	assert.Equal(t, int64(len(a)+5+len(b)+3), stats.Aggregate.TotalBytes)
}

func TestGatewayWithoutNodes(t *testing.T) {
	t.Parallel()

	gw := New(10, nil)
	code, env := do(t, gw.Router(), http.MethodGet, BasePath+"/buffers/x", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "no available nodes", env.Message)

	gw.AddNode("127.0.0.1:1")
	gw.RemoveNode("127.0.0.1:1")
	assert.Empty(t, gw.Nodes())
}
