// Package layer 把深度图切分为前景/中景/背景等深度分层，
// 每层带掩码、深度区间、包围盒，以及可选的纹理引用。
package layer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidInput 深度图为空、范围颠倒或原图尺寸不匹配
var ErrInvalidInput = errors.New("invalid input")

const (
	Foreground = "foreground"
	Midground  = "midground"
	Background = "background"
)

// Layer 单个深度分层，创建后不再修改
type Layer struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Mask       *Mask      `json:"mask"`
	DepthRange DepthRange `json:"depthRange"`
	Bounds     Bounds     `json:"bounds"`
	Texture    *string    `json:"texture"`
}

// Bounds 掩码中所有 true 像素的轴对齐包围盒
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b Bounds) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// DepthRange 分层的深度区间 [Lower, Upper]，编码为两元素数组
type DepthRange struct {
	Lower float64
	Upper float64
}

func (r DepthRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Lower, r.Upper})
}

func (r *DepthRange) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 2 {
		return fmt.Errorf("depth range needs 2 values, got %d", len(v))
	}
	r.Lower, r.Upper = v[0], v[1]
	return nil
}
