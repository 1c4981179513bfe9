package ffmpeg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseFrameRate(t *testing.T) {
	Convey("parseFrameRate 解析分数形式的帧率", t, func() {
		So(parseFrameRate("30/1"), ShouldAlmostEqual, 30.0, 1e-9)
		So(parseFrameRate("30000/1001"), ShouldAlmostEqual, 29.97, 0.01)
		So(parseFrameRate("0/0"), ShouldEqual, 0)
		So(parseFrameRate("invalid"), ShouldEqual, 0)
		So(parseFrameRate(""), ShouldEqual, 0)
	})
}

func TestCoverCropFilter(t *testing.T) {
	Convey("coverCropFilter 先铺满再居中裁剪", t, func() {
		filter := coverCropFilter(1920, 1080)
		So(filter, ShouldContainSubstring, "scale=1920:1080:force_original_aspect_ratio=increase")
		So(filter, ShouldContainSubstring, "crop=1920:1080")
		So(filter, ShouldContainSubstring, "setsar=1")
	})
}

func TestWriteConcatList(t *testing.T) {
	Convey("writeConcatList 生成 concat demuxer 清单", t, func() {
		dir := t.TempDir()
		client := NewClient()

		listPath, err := client.writeConcatList(
			[]string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")},
			filepath.Join(dir, "out.mp4"),
		)
		So(err, ShouldBeNil)
		defer os.Remove(listPath)

		content, err := os.ReadFile(listPath)
		So(err, ShouldBeNil)

		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		So(len(lines), ShouldEqual, 2)
		So(lines[0], ShouldStartWith, "file '")
		So(lines[0], ShouldContainSubstring, "a.mp4")
		So(lines[1], ShouldContainSubstring, "b.mp4")
		// 清单文件与输出文件同目录，concat -safe 0 下相对/绝对路径均可用
		So(filepath.Dir(listPath), ShouldEqual, dir)
	})
}

func TestTail(t *testing.T) {
	Convey("tail 截取字符串尾部", t, func() {
		So(tail("hello", 10), ShouldEqual, "hello")
		So(tail("  hello  ", 10), ShouldEqual, "hello")
		So(tail("abcdefgh", 3), ShouldEqual, "fgh")
	})
}
