package config

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/chaos-io/depth2layer/layer"
)

// Thresholds 根据 layer 配置构造分层阈值
func (c LayerConfig) Thresholds() (layer.Thresholds, error) {
	policy, err := layer.ParsePolicy(c.Policy)
	if err != nil {
		return layer.Thresholds{}, err
	}
	th := layer.Thresholds{
		Names:  append([]string(nil), c.Names...),
		Cuts:   append([]float64(nil), c.Cuts...),
		Policy: policy,
	}
	return th, th.Validate()
}

// BackgroundColor 解析纹理背景色，支持 #rgb 和 #rrggbb
func (c TextureConfig) BackgroundColor() (color.Color, error) {
	if c.Background == "" {
		return color.Black, nil
	}
	col, err := colorful.Hex(c.Background)
	if err != nil {
		return nil, fmt.Errorf("texture.background: %w", err)
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
