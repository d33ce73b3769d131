package depth

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"time"

	nhttp "github.com/chaos-io/depth2layer/util/http"
)

const estimatePath = "/estimate"

// RemoteEstimator 通过 HTTP 调用模型服务（DPT / MiDaS 等）做深度估计
type RemoteEstimator struct {
	baseURL string
	model   string
	timeout time.Duration
	cli     nhttp.IClient
}

func NewRemoteEstimator(baseURL, model string, timeout time.Duration) *RemoteEstimator {
	return &RemoteEstimator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		cli:     nhttp.NewHTTPClient(),
	}
}

type estimateReq struct {
	Model  string `json:"model,omitempty"`
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

/*
	curl -X POST "$MODEL_URL/estimate" \
	  -H "Content-Type: application/json" \
	  -d '{"model": "Intel/dpt-large", "image": "data:image/png;base64,...", "width": 640, "height": 480}'

{"data": [[...]], "width": 640, "height": 480, "minDepth": 0.12, "maxDepth": 9.7}
*/
func (r *RemoteEstimator) Estimate(ctx context.Context, img image.Image) (*Map, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	b := img.Bounds()
	resp := &Map{}
	reqParam := &nhttp.RequestParam{
		RequestURI: r.baseURL + estimatePath,
		Method:     http.MethodPost,
		Body: estimateReq{
			Model:  r.model,
			Image:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
			Width:  b.Dx(),
			Height: b.Dy(),
		},
		Response: resp,
		Timeout:  r.timeout,
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if err := resp.Validate(); err != nil {
		return nil, err
	}
	if resp.Width != b.Dx() || resp.Height != b.Dy() {
		return nil, fmt.Errorf("%w: model returned %dx%d for %dx%d image",
			ErrInvalidMap, resp.Width, resp.Height, b.Dx(), b.Dy())
	}

	resp.Normalize()
	return resp, nil
}
