package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"
)

// TestSplitTextIntoChunks 测试长文本按句子边界切块
func TestSplitTextIntoChunks(t *testing.T) {
	Convey("文本切块测试", t, func() {
		Convey("短文本不切块", func() {
			chunks := SplitTextIntoChunks("A short script.", 100)
			So(chunks, ShouldResemble, []string{"A short script."})
		})

		Convey("超限文本在句号处切开", func() {
			text := "First sentence is here. Second sentence follows. Third one ends it."
			chunks := SplitTextIntoChunks(text, 30)
			So(len(chunks), ShouldBeGreaterThan, 1)
			for _, c := range chunks {
				So(len(c), ShouldBeLessThanOrEqualTo, 30)
			}
			// 拼回后内容不丢
			joined := strings.Join(chunks, " ")
			So(joined, ShouldContainSubstring, "First sentence")
			So(joined, ShouldContainSubstring, "Third one ends it.")
		})

		Convey("没有句号时退回问号感叹号再退回空格", func() {
			text := "is this long enough? surely it must be! absolutely certain now"
			chunks := SplitTextIntoChunks(text, 25)
			So(len(chunks), ShouldBeGreaterThan, 1)
			for _, c := range chunks {
				So(c, ShouldNotBeEmpty)
				So(len(c), ShouldBeLessThanOrEqualTo, 25)
			}
		})

		Convey("无切点硬切时不破坏多字节字符", func() {
			text := strings.Repeat("宇宙的奥秘无穷无尽", 5) // 无标点无空格，每字符 3 字节
			chunks := SplitTextIntoChunks(text, 10)
			So(len(chunks), ShouldBeGreaterThan, 1)
			var joined strings.Builder
			for _, c := range chunks {
				So(utf8.ValidString(c), ShouldBeTrue)
				So(len(c), ShouldBeLessThanOrEqualTo, 10)
				joined.WriteString(c)
			}
			So(joined.String(), ShouldEqual, text)
		})

		Convey("切出的块没有首尾空白", func() {
			text := "One. Two. Three. Four. Five. Six. Seven. Eight. Nine. Ten."
			for _, c := range SplitTextIntoChunks(text, 12) {
				So(c, ShouldEqual, strings.TrimSpace(c))
			}
		})
	})
}
