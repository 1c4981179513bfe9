package service

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/config"
)

func TestNewVisualService_KeywordCount(t *testing.T) {
	Convey("搜索关键词数量取自配置", t, func() {
		videoCfg := &config.VideoConfig{}

		Convey("配置值生效", func() {
			svc := NewVisualService(nil, nil, nil, nil, nil, videoCfg,
				&config.PipelineConfig{KeywordCount: 3}, nil)
			So(svc.keywordCount, ShouldEqual, 3)
		})

		Convey("未配置时使用默认值", func() {
			svc := NewVisualService(nil, nil, nil, nil, nil, videoCfg,
				&config.PipelineConfig{}, nil)
			So(svc.keywordCount, ShouldEqual, 7)
		})
	})
}

func TestSplitParagraphs(t *testing.T) {
	Convey("按空行切分段落", t, func() {
		Convey("正常分段并去除首尾空白", func() {
			got := splitParagraphs("first paragraph\n\n  second paragraph  \n\nthird")
			So(got, ShouldResemble, []string{"first paragraph", "second paragraph", "third"})
		})

		Convey("空段落被丢弃", func() {
			got := splitParagraphs("one\n\n\n\n\n\ntwo")
			So(got, ShouldResemble, []string{"one", "two"})
		})

		Convey("没有空行时整体作为一段", func() {
			got := splitParagraphs("single block of text\nwith a line break")
			So(got, ShouldHaveLength, 1)
		})
	})
}

func TestCompact(t *testing.T) {
	Convey("compact 去掉空路径并保持顺序", t, func() {
		got := compact([]string{"a.png", "", "b.mp4", "", ""})
		So(got, ShouldResemble, []string{"a.png", "b.mp4"})

		So(compact(nil), ShouldHaveLength, 0)
	})
}

func TestImagePrompt(t *testing.T) {
	Convey("图片提示词包含主题并截断段落", t, func() {
		prompt := imagePrompt("Black Holes", strings.Repeat("x", 300))
		So(prompt, ShouldContainSubstring, "Black Holes")
		So(len(prompt), ShouldBeLessThan, 250)
	})
}

func TestThumbnailPrompt(t *testing.T) {
	Convey("缩略图提示词", t, func() {
		Convey("包含主题、脚本摘要和风格", func() {
			prompt := thumbnailPrompt("Ocean Depths", "The deep sea hides many secrets.", "photographic")
			So(prompt, ShouldContainSubstring, `"Ocean Depths"`)
			So(prompt, ShouldContainSubstring, "deep sea hides")
			So(prompt, ShouldContainSubstring, "photographic")
			So(prompt, ShouldNotContainSubstring, "national flag")
		})

		Convey("国家主题要求画出国旗", func() {
			prompt := thumbnailPrompt("What does AI think about japan?", "script", "photographic")
			So(prompt, ShouldContainSubstring, "national flag of Japan")
		})

		Convey("超长脚本被截断到 250 字符", func() {
			prompt := thumbnailPrompt("Topic", strings.Repeat("a", 500), "photographic")
			So(prompt, ShouldContainSubstring, strings.Repeat("a", 250))
			So(prompt, ShouldNotContainSubstring, strings.Repeat("a", 251))
		})
	})
}
