package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"ByteArrayGo/internal/model"
	"ByteArrayGo/pkg/bytearray"
	"ByteArrayGo/pkg/json"
)

// envelope 后端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call 调用后端节点接口，非200响应转换为APIError
func (g *Gateway) call(ctx context.Context, node, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+node+g.basePath+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &model.APIError{Code: http.StatusBadGateway, Message: fmt.Sprintf("node %s unreachable: %v", node, err)}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &model.APIError{Code: http.StatusBadGateway, Message: fmt.Sprintf("bad response from node %s: %v", node, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &model.APIError{Code: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// fetch 从归属节点读取缓冲区
func (g *Gateway) fetch(ctx context.Context, name string) (*bytearray.ByteArray, error) {
	node, err := g.owner(name)
	if err != nil {
		return nil, err
	}
	var resp model.BufferResponse
	if err := g.call(ctx, node, http.MethodGet, "/buffers/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return bytearray.FromBytes(nil), nil
	}
	return resp.Data, nil
}

// store 把缓冲区写入归属节点，同名覆盖
func (g *Gateway) store(ctx context.Context, name string, ba *bytearray.ByteArray) error {
	node, err := g.owner(name)
	if err != nil {
		return err
	}
	value, err := ba.MarshalJSON()
	if err != nil {
		return err
	}
	req := model.CreateRequest{
		Name:   name,
		Source: model.Source{Kind: model.KindBytes, Value: value},
	}
	return g.call(ctx, node, http.MethodPost, "/buffers", req, nil)
}
