// Package mesh 把深度图导出为 ASCII STL 浮雕，可整体导出也可按分层导出。
package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
)

// Options 模型尺寸，单位 mm
type Options struct {
	// ModelWidth X 方向总宽度，像素尺寸 = ModelWidth / 深度图宽度
	ModelWidth float64
	// Thickness 最近处相对最远处的浮雕高度
	Thickness float64
	// BaseThickness 整体浮雕底座厚度
	BaseThickness float64
	// LayerGap 分层导出时相邻分层在 Z 方向的间距
	LayerGap float64
}

func DefaultOptions() Options {
	return Options{
		ModelWidth:    50,
		Thickness:     5,
		BaseThickness: 2,
		LayerGap:      3,
	}
}

type vec3 [3]float64

// facetWriter 记录第一次写入错误，后续写入直接跳过
type facetWriter struct {
	w     *bufio.Writer
	count int
	err   error
}

func newFacetWriter(w io.Writer) *facetWriter {
	return &facetWriter{w: bufio.NewWriter(w)}
}

func (f *facetWriter) printf(format string, args ...interface{}) {
	if f.err != nil {
		return
	}
	_, f.err = fmt.Fprintf(f.w, format, args...)
}

// facet 写入 STL 面，法线由顶点顺序（右手）计算
func (f *facetWriter) facet(v1, v2, v3 vec3) {
	a := vec3{v2[0] - v1[0], v2[1] - v1[1], v2[2] - v1[2]}
	b := vec3{v3[0] - v1[0], v3[1] - v1[1], v3[2] - v1[2]}
	n := vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
	if norm := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2]); norm > 0 {
		for i := range n {
			n[i] /= norm
		}
	}
	f.printf("  facet normal %f %f %f\n", n[0], n[1], n[2])
	f.printf("    outer loop\n")
	f.printf("      vertex %f %f %f\n", v1[0], v1[1], v1[2])
	f.printf("      vertex %f %f %f\n", v2[0], v2[1], v2[2])
	f.printf("      vertex %f %f %f\n", v3[0], v3[1], v3[2])
	f.printf("    endloop\n")
	f.printf("  endfacet\n")
	f.count++
}

// quad 两个三角形组成的四边形 (a,b,c,d 逆时针)
func (f *facetWriter) quad(a, b, c, d vec3) {
	f.facet(a, b, d)
	f.facet(b, c, d)
}

func (f *facetWriter) close() error {
	if f.err != nil {
		return f.err
	}
	return f.w.Flush()
}

// heights 把深度换算成高度：近处高，远处低
func heights(dm *depth.Map, thickness, offset float64) []float64 {
	span := dm.MaxDepth - dm.MinDepth
	z := make([]float64, len(dm.Data))
	for i, v := range dm.Data {
		t := 0.0
		if span > 0 {
			t = math.Max(0, math.Min(1, (v-dm.MinDepth)/span))
		}
		z[i] = offset + (1-t)*thickness
	}
	return z
}

// WriteReliefSTL 把整张深度图导出为带底座的封闭浮雕，返回面数
func WriteReliefSTL(w io.Writer, dm *depth.Map, opts Options) (int, error) {
	if err := dm.Validate(); err != nil {
		return 0, err
	}
	width, height := dm.Width, dm.Height
	if width < 2 || height < 2 {
		return 0, fmt.Errorf("%w: relief needs at least 2x2 pixels", depth.ErrInvalidMap)
	}
	px := opts.ModelWidth / float64(width)
	z := heights(dm, opts.Thickness, 0)
	base := -opts.BaseThickness

	// 图像 y 轴向下，模型 Y 轴向上
	pt := func(x, y int, zz float64) vec3 {
		return vec3{float64(x) * px, float64(height-y-1) * px, zz}
	}
	top := func(x, y int) vec3 { return pt(x, y, z[y*width+x]) }
	bottom := func(x, y int) vec3 { return pt(x, y, base) }

	f := newFacetWriter(w)
	f.printf("solid relief_model\n")

	for y := 0; y < height-1; y++ {
		for x := 0; x < width-1; x++ {
			// 顶面
			f.facet(top(x, y), top(x+1, y), top(x, y+1))
			f.facet(top(x+1, y), top(x+1, y+1), top(x, y+1))
			// 底面 (Z = -baseThickness)
			f.facet(bottom(x, y), bottom(x+1, y+1), bottom(x+1, y))
			f.facet(bottom(x, y), bottom(x, y+1), bottom(x+1, y+1))
		}
	}

	// 前后边缘
	for x := 0; x < width-1; x++ {
		f.quad(bottom(x, height-1), bottom(x+1, height-1), top(x+1, height-1), top(x, height-1))
		f.quad(bottom(x+1, 0), bottom(x, 0), top(x, 0), top(x+1, 0))
	}
	// 左右边缘
	for y := 0; y < height-1; y++ {
		f.quad(bottom(0, y), bottom(0, y+1), top(0, y+1), top(0, y))
		f.quad(bottom(width-1, y+1), bottom(width-1, y), top(width-1, y), top(width-1, y+1))
	}

	f.printf("endsolid relief_model\n")
	return f.count, f.close()
}

// WriteLayerSTL 只导出掩码内的顶面：四个角点都在掩码内的网格单元输出两个面
func WriteLayerSTL(w io.Writer, name string, dm *depth.Map, mask *layer.Mask, offset float64, opts Options) (int, error) {
	if err := dm.Validate(); err != nil {
		return 0, err
	}
	if mask.Width != dm.Width || mask.Height != dm.Height {
		return 0, fmt.Errorf("%w: mask %dx%d, depth map %dx%d",
			layer.ErrInvalidInput, mask.Width, mask.Height, dm.Width, dm.Height)
	}
	width, height := dm.Width, dm.Height
	px := opts.ModelWidth / float64(width)
	z := heights(dm, opts.Thickness, offset)
	top := func(x, y int) vec3 {
		return vec3{float64(x) * px, float64(height-y-1) * px, z[y*width+x]}
	}

	f := newFacetWriter(w)
	f.printf("solid %s\n", name)
	for y := 0; y < height-1; y++ {
		for x := 0; x < width-1; x++ {
			if !mask.At(x, y) || !mask.At(x+1, y) || !mask.At(x, y+1) || !mask.At(x+1, y+1) {
				continue
			}
			f.facet(top(x, y), top(x+1, y), top(x, y+1))
			f.facet(top(x+1, y), top(x+1, y+1), top(x, y+1))
		}
	}
	f.printf("endsolid %s\n", name)
	return f.count, f.close()
}

// WriteSceneSTL 每个分层一个文件，越远的分层 Z 越低，返回写出的文件路径
func WriteSceneSTL(dir string, dm *depth.Map, layers []layer.Layer, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}

	var paths []string
	for i, l := range layers {
		path := filepath.Join(dir, l.Name+".stl")
		if err := writeFile(path, func(w io.Writer) error {
			_, err := WriteLayerSTL(w, l.Name, dm, l.Mask, -float64(i)*opts.LayerGap, opts)
			return err
		}); err != nil {
			return paths, fmt.Errorf("write %s: %w", l.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
