package depth

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidMap 深度图尺寸或取值不合法
var ErrInvalidMap = errors.New("invalid depth map")

// Map 稠密深度图，Data 按行优先存储，数值越小离相机越近。
// 数值是相对深度，没有物理单位。
type Map struct {
	Width    int
	Height   int
	Data     []float64
	MinDepth float64
	MaxDepth float64
}

// NewMap 创建全零深度图
func NewMap(width, height int) *Map {
	return &Map{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// FromRows 从二维数组构造深度图，并计算取值范围
func FromRows(rows [][]float64) (*Map, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrInvalidMap)
	}
	h, w := len(rows), len(rows[0])
	m := NewMap(w, h)
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidMap, y, len(row), w)
		}
		copy(m.Data[y*w:(y+1)*w], row)
	}
	m.MinDepth, m.MaxDepth = m.Range()
	return m, nil
}

// FromGray 把灰度图转换为深度图，亮的地方更近（深度更小）
func FromGray(g *image.Gray) *Map {
	b := g.Bounds()
	m := NewMap(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+m.Width]
		for x, v := range row {
			m.Data[y*m.Width+x] = 1 - float64(v)/255.0
		}
	}
	m.MinDepth, m.MaxDepth = m.Range()
	return m
}

func (m *Map) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Data) == 0
}

func (m *Map) At(x, y int) float64 {
	return m.Data[y*m.Width+x]
}

func (m *Map) Set(x, y int, v float64) {
	m.Data[y*m.Width+x] = v
}

// Bounds 深度图对应的图像坐标范围
func (m *Map) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Range 扫描数据得到实际的最小值和最大值
func (m *Map) Range() (float64, float64) {
	if len(m.Data) == 0 {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.Data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

// Validate 检查尺寸、数据长度和取值范围
func (m *Map) Validate() error {
	if m.Empty() {
		return fmt.Errorf("%w: empty", ErrInvalidMap)
	}
	if len(m.Data) != m.Width*m.Height {
		return fmt.Errorf("%w: %d values for %dx%d", ErrInvalidMap, len(m.Data), m.Width, m.Height)
	}
	if m.MinDepth > m.MaxDepth {
		return fmt.Errorf("%w: minDepth %v > maxDepth %v", ErrInvalidMap, m.MinDepth, m.MaxDepth)
	}
	return nil
}

// Normalize 线性归一化到 [0,1]；常量图归一化为全 0
func (m *Map) Normalize() {
	lo, hi := m.Range()
	span := hi - lo
	for i, v := range m.Data {
		if span == 0 || math.IsNaN(v) {
			m.Data[i] = 0
			continue
		}
		m.Data[i] = (v - lo) / span
	}
	m.MinDepth = 0
	m.MaxDepth = 1
	if span == 0 {
		m.MaxDepth = 0
	}
}

// Gray 生成 8 位可视化图，近处亮远处暗；NaN 视为最远
func (m *Map) Gray() *image.Gray {
	g := image.NewGray(m.Bounds())
	span := m.MaxDepth - m.MinDepth
	for i, v := range m.Data {
		t := 0.0
		if math.IsNaN(v) {
			t = 1
		} else if span > 0 {
			t = (v - m.MinDepth) / span
		}
		t = math.Max(0, math.Min(1, t))
		g.Pix[(i/m.Width)*g.Stride+i%m.Width] = uint8((1-t)*255 + 0.5)
	}
	return g
}

// Rows 按行拆分数据
func (m *Map) Rows() [][]float64 {
	rows := make([][]float64, m.Height)
	for y := range rows {
		rows[y] = m.Data[y*m.Width : (y+1)*m.Width]
	}
	return rows
}

type mapJSON struct {
	Data     [][]float64 `json:"data"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	MinDepth float64     `json:"minDepth"`
	MaxDepth float64     `json:"maxDepth"`
}

func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(mapJSON{
		Data:     m.Rows(),
		Width:    m.Width,
		Height:   m.Height,
		MinDepth: m.MinDepth,
		MaxDepth: m.MaxDepth,
	})
}

// UnmarshalJSON 缺省 minDepth/maxDepth 时使用数据的实际范围
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data     [][]float64 `json:"data"`
		Width    int         `json:"width"`
		Height   int         `json:"height"`
		MinDepth *float64    `json:"minDepth"`
		MaxDepth *float64    `json:"maxDepth"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromRows(raw.Data)
	if err != nil {
		return err
	}
	if raw.Width != 0 && raw.Width != parsed.Width || raw.Height != 0 && raw.Height != parsed.Height {
		return fmt.Errorf("%w: declared %dx%d, data is %dx%d",
			ErrInvalidMap, raw.Width, raw.Height, parsed.Width, parsed.Height)
	}
	*m = *parsed
	if raw.MinDepth != nil {
		m.MinDepth = *raw.MinDepth
	}
	if raw.MaxDepth != nil {
		m.MaxDepth = *raw.MaxDepth
	}
	return nil
}
