package handler

import (
	"net/http"
	"strconv"

	"ByteArrayGo/internal/model"
	"ByteArrayGo/internal/service"
	"ByteArrayGo/pkg/common"
	"ByteArrayGo/pkg/json"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BufferHandler 缓冲区处理器
type BufferHandler struct {
	bufferService *service.BufferService
}

// NewBufferHandler 创建缓冲区处理器
func NewBufferHandler(bufferService *service.BufferService) *BufferHandler {
	return &BufferHandler{
		bufferService: bufferService,
	}
}

// Register 注册路由
func (h *BufferHandler) Register(group *gin.RouterGroup) {
	group.POST("/buffers", h.Create)
	group.GET("/buffers", h.List)
	group.GET("/buffers/:name", h.Get)
	group.DELETE("/buffers/:name", h.Delete)
	group.GET("/buffers/:name/index/:index", h.Index)
	group.POST("/buffers/:name/slice", h.Slice)
	group.POST("/buffers/:name/concat", h.Concat)
	group.POST("/buffers/:name/append", h.Append)
	group.GET("/buffers/:name/repr", h.Repr)
	group.GET("/stats", h.Stats)
}

// Create 创建缓冲区
// POST /buffers
func (h *BufferHandler) Create(c *gin.Context) {
	var req model.CreateRequest
	if err := bindJSON(c, &req); err != nil {
		common.Abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ba, err := h.bufferService.Create(c.Request.Context(), req.Name, &req.Source)
	if err != nil {
		fail(c, "create", err)
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(req.Name, ba)))
}

// List 列出缓冲区
// GET /buffers
func (h *BufferHandler) List(c *gin.Context) {
	names, err := h.bufferService.List(c.Request.Context())
	if err != nil {
		fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.ListResponse{Names: names, Count: len(names)}))
}

// Get 获取缓冲区
// GET /buffers/:name
func (h *BufferHandler) Get(c *gin.Context) {
	name := c.Param("name")
	ba, err := h.bufferService.Get(c.Request.Context(), name)
	if err != nil {
		fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(name, ba)))
}

// Delete 删除缓冲区
// DELETE /buffers/:name
func (h *BufferHandler) Delete(c *gin.Context) {
	if err := h.bufferService.Delete(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(true))
}

// Index 获取单个字节
// GET /buffers/:name/index/:index
func (h *BufferHandler) Index(c *gin.Context) {
	name := c.Param("name")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		common.Abort(c, http.StatusBadRequest, "index must be an integer")
		return
	}

	v, err := h.bufferService.Index(c.Request.Context(), name, index)
	if err != nil {
		fail(c, "index", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.IndexResponse{Name: name, Index: index, Value: v}))
}

// Slice 切片
// POST /buffers/:name/slice
func (h *BufferHandler) Slice(c *gin.Context) {
	var req model.SliceRequest
	if err := bindJSON(c, &req); err != nil {
		common.Abort(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ba, err := h.bufferService.Slice(c.Request.Context(), c.Param("name"),
		req.Start.Ptr(), req.Stop.Ptr(), req.Step.Ptr(), req.Target)
	if err != nil {
		fail(c, "slice", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(req.Target, ba)))
}

// Concat 拼接
// POST /buffers/:name/concat
func (h *BufferHandler) Concat(c *gin.Context) {
	var req model.ConcatRequest
	if err := bindJSON(c, &req); err != nil || req.Other == "" {
		common.Abort(c, http.StatusBadRequest, "invalid request: other is required")
		return
	}

	ba, err := h.bufferService.Concat(c.Request.Context(), c.Param("name"), req.Other, req.Target)
	if err != nil {
		fail(c, "concat", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(req.Target, ba)))
}

// Append 追加
// POST /buffers/:name/append
func (h *BufferHandler) Append(c *gin.Context) {
	var req model.AppendRequest
	if err := bindJSON(c, &req); err != nil || req.Other == "" {
		common.Abort(c, http.StatusBadRequest, "invalid request: other is required")
		return
	}

	name := c.Param("name")
	ba, err := h.bufferService.Append(c.Request.Context(), name, req.Other)
	if err != nil {
		fail(c, "append", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.NewBufferResponse(name, ba)))
}

// Repr 文本渲染
// GET /buffers/:name/repr
func (h *BufferHandler) Repr(c *gin.Context) {
	r, err := h.bufferService.Render(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, "repr", err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(r))
}

// Stats 统计信息
// GET /stats
func (h *BufferHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, common.NewSuccessResponse(h.bufferService.Stats(c.Request.Context())))
}

// bindJSON 用jsoniter解析请求体
func bindJSON(c *gin.Context, v interface{}) error {
	return json.NewDecoder(c.Request.Body).Decode(v)
}

// fail 按错误类别写响应
func fail(c *gin.Context, op string, err error) {
	apiErr := model.FromError(err)
	if apiErr.Code >= http.StatusInternalServerError {
		logrus.Errorf("Failed to %s buffer: %v", op, err)
	} else {
		logrus.Debugf("Rejected %s request: %v", op, err)
	}
	common.Abort(c, apiErr.Code, apiErr.Message)
}
