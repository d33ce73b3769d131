package depth

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

// DefaultMaxSize 送入深度估计前的最长边上限
const DefaultMaxSize = 1024

// Preprocess 把任意输入图片变成
//
//	NRGBA，原点 (0,0)，最长边 ≤ maxSize
//	带透明通道的图片预乘 alpha，透明处变黑
//
// 深度图在这张图上估计，后续纹理也从这张图提取，尺寸天然一致。
// 输入图片不会被修改。
func Preprocess(input image.Image, maxSize int) *image.NRGBA {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	src := fitLongestEdge(toNRGBA(input), maxSize)

	if !opaque(src) {
		if src == input {
			src = cloneNRGBA(src)
		}
		premultiply(src)
	}
	return src
}

// opaque 所有像素 alpha 均为 255
func opaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

func fitLongestEdge(img *image.NRGBA, maxSize int) *image.NRGBA {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= maxSize {
		return img
	}

	ratio := float64(maxSize) / float64(longest)
	w := max(1, int(float64(b.Dx())*ratio))
	h := max(1, int(float64(b.Dy())*ratio))
	return toNRGBA(resize.Resize(uint(w), uint(h), img, resize.Lanczos3))
}

// premultiply 预乘 Alpha 并把结果变成不透明
// 例如：红色半透明 (1,0,0,0.5) → (0.5,0,0)，背景自然变黑
func premultiply(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		a := float64(img.Pix[i+3]) / 255.0
		img.Pix[i] = uint8(float64(img.Pix[i]) * a)
		img.Pix[i+1] = uint8(float64(img.Pix[i+1]) * a)
		img.Pix[i+2] = uint8(float64(img.Pix[i+2]) * a)
		img.Pix[i+3] = 255
	}
}

// toNRGBA 统一转换为原点在 (0,0) 的 NRGBA，已满足条件时原样返回
func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}
