// Package placeholder 生成确定性的渐变占位图。
// 素材获取彻底失败的槽位用占位图补齐：同一槽位下标永远得到同一组渐变色
// （按调色板大小取模），保证补齐结果可复现。
package placeholder

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
)

// 渐变调色板：每项为 (起始色, 结束色)，按槽位下标取模选择
var palette = [][2]color.RGBA{
	{{R: 20, G: 20, B: 50, A: 255}, {R: 50, G: 50, B: 100, A: 255}},
	{{R: 50, G: 20, B: 20, A: 255}, {R: 100, G: 50, B: 50, A: 255}},
	{{R: 20, G: 50, B: 20, A: 255}, {R: 50, G: 100, B: 50, A: 255}},
}

// PaletteSize 调色板大小
func PaletteSize() int {
	return len(palette)
}

// GradientFor 返回槽位下标对应的渐变色（起始色、结束色）
func GradientFor(index int) (color.RGBA, color.RGBA) {
	pair := palette[index%len(palette)]
	return pair[0], pair[1]
}

// Generate 为槽位 index 生成一张渐变占位图并写入 dir。
// 渐变颜色由 index 确定，文件名带随机后缀避免覆盖；rng 为空时使用全局随机源。
func Generate(index int, dir string, width, height int, rng *rand.Rand) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid placeholder size %dx%d", width, height)
	}

	start, end := GradientFor(index)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		ratio := float64(y) / float64(height)
		line := color.RGBA{
			R: lerp(start.R, end.R, ratio),
			G: lerp(start.G, end.G, ratio),
			B: lerp(start.B, end.B, ratio),
			A: 255,
		}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, line)
		}
	}

	suffix := 1000 + randIntn(rng, 9000)
	path := filepath.Join(dir, fmt.Sprintf("fallback_%d_%d.jpg", index, suffix))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create placeholder file: %w", err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("encode placeholder: %w", err)
	}

	return path, nil
}

func lerp(a, b uint8, ratio float64) uint8 {
	return uint8(float64(a)*(1-ratio) + float64(b)*ratio)
}

func randIntn(rng *rand.Rand, n int) int {
	if rng != nil {
		return rng.Intn(n)
	}
	return rand.Intn(n)
}
