package keywords

import (
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtract(t *testing.T) {
	Convey("Extract 提取兜底搜索关键词", t, func() {
		Convey("正则降级路径：取主题中的长词并补充通用搜索词", func() {
			e := &Extractor{} // segmenter 为 nil，走正则分词
			keywords := e.Extract("Why Do We Dream At Night")

			So(keywords, ShouldContain, "dream")
			So(keywords, ShouldContain, "night")
			So(keywords, ShouldContain, "cinematic")
			So(keywords, ShouldContain, "4k footage")
			So(keywords, ShouldNotContain, "why")
			So(keywords, ShouldNotContain, "we")
		})

		Convey("结果去重且不超过 15 个", func() {
			e := &Extractor{}
			keywords := e.Extract("ocean ocean ocean waves waves sunset sunset mountain glacier volcano canyon desert forest river")
			So(len(keywords), ShouldBeLessThanOrEqualTo, 15)

			seen := map[string]int{}
			for _, k := range keywords {
				seen[k]++
				So(seen[k], ShouldEqual, 1)
			}
		})

		Convey("空主题仍返回通用搜索词", func() {
			e := &Extractor{}
			keywords := e.Extract("")
			So(len(keywords), ShouldEqual, 4)
			So(keywords[0], ShouldEqual, "4k footage")
		})

		Convey("NewExtractor 的完整路径结果合法", func() {
			e := NewExtractor()
			So(e, ShouldNotBeNil)
			keywords := e.Extract("The hidden psychology of supermarket design")
			So(len(keywords), ShouldBeGreaterThanOrEqualTo, 4)
			So(len(keywords), ShouldBeLessThanOrEqualTo, 15)
			for _, k := range keywords {
				So(utf8.RuneCountInString(k), ShouldBeGreaterThanOrEqualTo, 4)
			}
		})
	})
}
