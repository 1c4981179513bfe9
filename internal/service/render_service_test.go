package service

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/config"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestExtractIndex 测试从素材文件名解析序号
func TestExtractIndex(t *testing.T) {
	Convey("素材序号解析测试", t, func() {
		So(extractIndex("/tmp/asset_3_pexels_v_123.mp4"), ShouldEqual, 3)
		So(extractIndex("/tmp/gen_12_4567.png"), ShouldEqual, 12)
		So(extractIndex("/tmp/fallback_0_8812.jpg"), ShouldEqual, 0)
		So(extractIndex("/tmp/noindex.jpg"), ShouldEqual, 0)
	})
}

// TestRenderService_OrderAssets 测试素材排序：视频在前图片在后，各按序号升序
func TestRenderService_OrderAssets(t *testing.T) {
	Convey("素材排序测试", t, func() {
		dir := t.TempDir()
		v2 := touch(t, filepath.Join(dir, "asset_2_vid.mp4"))
		v0 := touch(t, filepath.Join(dir, "asset_0_vid.mp4"))
		i1 := touch(t, filepath.Join(dir, "gen_1_1234.png"))
		i5 := touch(t, filepath.Join(dir, "asset_5_img.jpg"))
		missing := filepath.Join(dir, "asset_9_gone.mp4")
		unknown := touch(t, filepath.Join(dir, "notes_1.txt"))

		svc := NewRenderService(nil, &config.VideoConfig{Width: 1920, Height: 1080, FPS: 30}, nil)
		ordered := svc.orderAssets([]string{i5, missing, v2, unknown, i1, v0, ""})

		So(ordered, ShouldResemble, []string{v0, v2, i1, i5})
	})
}

// TestAssetTypePredicates 测试素材类型判断
func TestAssetTypePredicates(t *testing.T) {
	Convey("素材类型判断测试", t, func() {
		So(isVideoAsset("a.MP4"), ShouldBeTrue)
		So(isVideoAsset("a.mov"), ShouldBeTrue)
		So(isVideoAsset("a.jpg"), ShouldBeFalse)
		So(isImageAsset("a.JPEG"), ShouldBeTrue)
		So(isImageAsset("a.png"), ShouldBeTrue)
		So(isImageAsset("a.avi"), ShouldBeFalse)
	})
}
