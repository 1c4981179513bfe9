package placeholder

import (
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	Convey("Generate 生成确定性的渐变占位图", t, func() {
		dir := t.TempDir()

		Convey("同一下标两次生成的渐变颜色一致（文件名后缀除外）", func() {
			rng := rand.New(rand.NewSource(42))
			path1, err := Generate(2, dir, 64, 36, rng)
			So(err, ShouldBeNil)
			path2, err := Generate(2, dir, 64, 36, rng)
			So(err, ShouldBeNil)
			So(path1, ShouldNotEqual, path2)

			So(samplePixels(t, path1), ShouldResemble, samplePixels(t, path2))
		})

		Convey("下标按调色板大小取模：index 与 index+len(palette) 颜色相同", func() {
			s0, e0 := GradientFor(1)
			s1, e1 := GradientFor(1 + PaletteSize())
			So(s0, ShouldResemble, s1)
			So(e0, ShouldResemble, e1)
		})

		Convey("不同调色板槽位颜色不同", func() {
			s0, _ := GradientFor(0)
			s1, _ := GradientFor(1)
			So(s0, ShouldNotResemble, s1)
		})

		Convey("文件名携带槽位下标", func() {
			path, err := Generate(7, dir, 32, 18, rand.New(rand.NewSource(1)))
			So(err, ShouldBeNil)
			So(filepath.Base(path), ShouldStartWith, "fallback_7_")
			So(strings.HasSuffix(path, ".jpg"), ShouldBeTrue)

			info, err := os.Stat(path)
			So(err, ShouldBeNil)
			So(info.Size(), ShouldBeGreaterThan, 0)
		})

		Convey("非法尺寸返回错误", func() {
			_, err := Generate(0, dir, 0, 100, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

// samplePixels 解码图片并取若干行首像素作为颜色指纹
func samplePixels(t *testing.T, path string) []uint32 {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	img, err := jpeg.Decode(file)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}

	var samples []uint32
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 8 {
		r, g, b, _ := img.At(bounds.Min.X, y).RGBA()
		samples = append(samples, r>>8, g>>8, b>>8)
	}
	return samples
}
