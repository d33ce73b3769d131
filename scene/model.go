package scene

import (
	"time"

	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
)

const (
	StatusCompleted = "completed"
	StatusMock      = "mock"
)

// Scene 一张图片的分层结果
type Scene struct {
	ID        string        `json:"id"`
	MD5       string        `json:"md5"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	DepthMap  *depth.Map    `json:"depthMap,omitempty"`
	Layers    []layer.Layer `json:"layers"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Response 统一响应
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LayersData 仅分层（无纹理）的返回数据
type LayersData struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Layers []layer.Layer `json:"layers"`
}

func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

func Fail(message string, err error) Response {
	r := Response{Success: false, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
