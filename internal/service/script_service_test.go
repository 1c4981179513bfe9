package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/ai"
	"mango/internal/model"
)

// stubChatModel 固定应答的 ChatModel，记录收到的提示词
type stubChatModel struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (m *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if len(input) > 0 {
		m.prompts = append(m.prompts, input[len(input)-1].Content)
	}
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[m.calls%len(m.replies)]
	m.calls++
	return schema.AssistantMessage(reply, nil), nil
}

func (m *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming is not supported")
}

func (m *stubChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// TestCleanScriptForVoice 测试旁白清洗规则
func TestCleanScriptForVoice(t *testing.T) {
	Convey("旁白清洗测试", t, func() {
		Convey("去掉括号内容和镜头指示", func() {
			in := "Hello [intro music] world (dramatic pause) <b>there</b>. Cut to: the ocean."
			out := CleanScriptForVoice(in)
			So(out, ShouldNotContainSubstring, "intro music")
			So(out, ShouldNotContainSubstring, "dramatic pause")
			So(out, ShouldNotContainSubstring, "<b>")
			So(out, ShouldNotContainSubstring, "Cut to:")
			So(out, ShouldContainSubstring, "Hello")
			So(out, ShouldContainSubstring, "the ocean")
		})

		Convey("去掉章节标记和加粗符号", func() {
			in := "Part 1: The beginning. **Important** fact here. Section 2: more."
			out := CleanScriptForVoice(in)
			So(out, ShouldNotContainSubstring, "Part 1:")
			So(out, ShouldNotContainSubstring, "Section 2:")
			So(out, ShouldNotContainSubstring, "**")
			So(out, ShouldContainSubstring, "Important")
		})

		Convey("纯旁白原样保留", func() {
			in := "The deep sea hides creatures we have never seen."
			So(CleanScriptForVoice(in), ShouldEqual, in)
		})
	})
}

// TestScriptService_GenerateScript 测试脚本生成与重试
func TestScriptService_GenerateScript(t *testing.T) {
	Convey("脚本生成测试", t, func() {
		job := &model.Job{
			Topic:     "why do we dream",
			Category:  "why",
			VideoType: model.VideoTypeStandard,
		}
		settings := model.SettingsFor(job.VideoType)

		Convey("正常应答返回清洗后的脚本", func() {
			stub := &stubChatModel{replies: []string{
				"[music] Dreams are the brain's way of sorting memories while you sleep, and scientists still argue about why.",
			}}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			script, err := svc.GenerateScript(context.Background(), job, settings)
			So(err, ShouldBeNil)
			So(script, ShouldNotContainSubstring, "[music]")
			So(len(script), ShouldBeGreaterThanOrEqualTo, 50)
		})

		Convey("应答过短时重试，次数耗尽后返回脚本阶段错误", func() {
			stub := &stubChatModel{replies: []string{"too short"}}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			_, err := svc.GenerateScript(context.Background(), job, settings)
			So(err, ShouldNotBeNil)
			genErr := model.AsGenerationError(err)
			So(genErr, ShouldNotBeNil)
			So(genErr.Phase, ShouldEqual, model.PhaseScript)
			So(stub.calls, ShouldEqual, 3)
		})

		Convey("LLM 未配置时直接返回脚本阶段错误", func() {
			svc := NewScriptService(nil, 3)
			_, err := svc.GenerateScript(context.Background(), job, settings)
			genErr := model.AsGenerationError(err)
			So(genErr, ShouldNotBeNil)
			So(genErr.Phase, ShouldEqual, model.PhaseScript)
		})

		Convey("custom 分类的国家主题走第一人称AI视角提示词", func() {
			stub := &stubChatModel{replies: []string{strings.Repeat("As an AI, my analysis shows fascinating patterns. ", 5)}}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			countryJob := &model.Job{
				Topic:     "what does ai think about japan?",
				Category:  "custom",
				VideoType: model.VideoTypeStandard,
			}
			_, err := svc.GenerateScript(context.Background(), countryJob, settings)
			So(err, ShouldBeNil)
			So(len(stub.prompts), ShouldEqual, 1)
			So(stub.prompts[0], ShouldContainSubstring, "first-person AI persona")
			So(stub.prompts[0], ShouldContainSubstring, "Japan")
		})
	})
}

// TestScriptService_GenerateMetadata 测试元数据解析与保底
func TestScriptService_GenerateMetadata(t *testing.T) {
	Convey("元数据生成测试", t, func() {
		topic := "why do we dream"
		script := "Dreams are the brain's way of sorting memories while you sleep."

		Convey("规范应答解析出标题描述和标签", func() {
			stub := &stubChatModel{replies: []string{
				"Why You Dream Every Night\n---\nYour brain replays the day while you sleep 🧠\n---\ndreams, sleep science, memory",
			}}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			md := svc.GenerateMetadata(context.Background(), topic, script, model.VideoTypeStandard)
			So(md.Title, ShouldEqual, "Why You Dream Every Night")
			So(md.Tags, ShouldResemble, []string{"dreams", "sleep science", "memory"})
			So(md.Description, ShouldContainSubstring, "#dreams")
			So(md.Description, ShouldContainSubstring, "#sleepscience")
			So(md.VideoType, ShouldEqual, "standard")
		})

		Convey("应答带PART头时剥掉前缀", func() {
			stub := &stubChatModel{replies: []string{
				"PART 1: A Title\n---\nPART 2: A description.\n---\nPART 3: tag one, tag two",
			}}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			md := svc.GenerateMetadata(context.Background(), topic, script, model.VideoTypeStandard)
			So(md.Title, ShouldEqual, "A Title")
			So(md.Tags, ShouldResemble, []string{"tag one", "tag two"})
		})

		Convey("格式不符合约定时退回保底元数据", func() {
			stub := &stubChatModel{replies: []string{"no separators at all"}}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			md := svc.GenerateMetadata(context.Background(), topic, script, model.VideoTypeShorts)
			So(md.Title, ShouldEqual, topic)
			So(md.Description, ShouldEqual, script)
			So(md.Tags, ShouldContain, "dream")
			So(md.VideoType, ShouldEqual, "shorts")
		})

		Convey("LLM 调用失败时退回保底元数据", func() {
			stub := &stubChatModel{err: errors.New("rate limited")}
			svc := NewScriptService(ai.NewClientWithModel(stub), 3)

			md := svc.GenerateMetadata(context.Background(), topic, script, model.VideoTypeStandard)
			So(md.Title, ShouldEqual, topic)
		})
	})
}
