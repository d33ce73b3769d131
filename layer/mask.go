package layer

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
)

// Mask 与深度图同尺寸的布尔网格，行优先
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

func (m *Mask) At(x, y int) bool {
	return m.Bits[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count true 像素个数
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Bounds 计算包围盒；空掩码返回 {0,0,0,0}
func (m *Mask) Bounds() Bounds {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1

	for y := 0; y < m.Height; y++ {
		row := m.Bits[y*m.Width : (y+1)*m.Width]
		for x, b := range row {
			if !b {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	if maxX < 0 {
		return Bounds{}
	}
	return Bounds{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}
}

// Alpha 转成 alpha 图，便于与 image/draw 配合作为遮罩
func (m *Mask) Alpha() *image.Alpha {
	a := image.NewAlpha(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			a.Pix[(i/m.Width)*a.Stride+i%m.Width] = 0xff
		}
	}
	return a
}

func (m *Mask) MarshalJSON() ([]byte, error) {
	rows := make([][]bool, m.Height)
	for y := range rows {
		rows[y] = m.Bits[y*m.Width : (y+1)*m.Width]
	}
	return json.Marshal(rows)
}

func (m *Mask) UnmarshalJSON(data []byte) error {
	var rows [][]bool
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	*m = Mask{Height: len(rows)}
	if len(rows) == 0 {
		return nil
	}
	m.Width = len(rows[0])
	m.Bits = make([]bool, 0, m.Width*m.Height)
	for y, row := range rows {
		if len(row) != m.Width {
			return fmt.Errorf("mask row %d has %d values, want %d", y, len(row), m.Width)
		}
		m.Bits = append(m.Bits, row...)
	}
	return nil
}

// Extract 复制原图，掩码外的像素填充为 bg（通常为黑色）
func Extract(src image.Image, mask *Mask, bg color.Color) *image.NRGBA {
	b := src.Bounds()
	fill := color.NRGBAModel.Convert(bg).(color.NRGBA)
	dst := image.NewNRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			c := fill
			if mask.At(x, y) {
				c = color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			}
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}
