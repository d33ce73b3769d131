package layer

import "fmt"

// Mock 不依赖深度图的演示分层：中心圆盘为前景，圆环为中景，其余为背景。
// 三个掩码恰好覆盖整个 width×height 网格；空分层同样被省略。
func Mock(width, height int) ([]Layer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: mock size %dx%d", ErrInvalidInput, width, height)
	}

	cx, cy := width/2, height/2
	r := min(width, height) / 4
	outer := min(width, height) / 2

	masks := map[string]*Mask{
		Foreground: NewMask(width, height),
		Midground:  NewMask(width, height),
		Background: NewMask(width, height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
			switch {
			case d2 <= r*r:
				masks[Foreground].Set(x, y, true)
			case d2 <= outer*outer:
				masks[Midground].Set(x, y, true)
			default:
				masks[Background].Set(x, y, true)
			}
		}
	}

	ranges := map[string]DepthRange{
		Foreground: {Lower: 0, Upper: ForegroundCut},
		Midground:  {Lower: ForegroundCut, Upper: BackgroundCut},
		Background: {Lower: BackgroundCut, Upper: 1},
	}

	var layers []Layer
	for _, name := range []string{Foreground, Midground, Background} {
		m := masks[name]
		if m.Count() == 0 {
			continue
		}
		layers = append(layers, Layer{
			ID:         name + "_mock",
			Name:       name,
			Mask:       m,
			DepthRange: ranges[name],
			Bounds:     m.Bounds(),
		})
	}
	return layers, nil
}
