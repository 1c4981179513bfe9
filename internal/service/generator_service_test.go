package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/config"
	"mango/internal/model"
	"mango/internal/repository/journal"
	progressRepo "mango/internal/repository/progress"
)

func newTestGenerator(t *testing.T) (*GeneratorService, *journal.JournalRepo, *progressRepo.ProgressRepo) {
	t.Helper()
	outputDir := t.TempDir()
	journals, err := journal.NewJournalRepo(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	progress := progressRepo.NewProgressRepo(outputDir)

	cfg := &config.Config{}
	cfg.Pipeline.OutputDir = outputDir
	cfg.Pipeline.MaxConcurrentVideos = 1

	// 脚本服务不配 LLM 客户端，后台任务会在脚本阶段以错误收尾
	svc := NewGeneratorService(cfg, NewScriptService(nil, 1), nil, nil, nil, nil, progress, journals, nil)
	return svc, journals, progress
}

// waitForStatus 轮询等待后台任务进入指定状态
func waitForStatus(t *testing.T, progress *progressRepo.ProgressRepo, progressID, status string) *model.ProgressRecord {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rec := progress.Get(progressID); rec.Status == status {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	return progress.Get(progressID)
}

// TestSanitizeProjectName 测试主题转目录名
func TestSanitizeProjectName(t *testing.T) {
	Convey("项目名清洗测试", t, func() {
		So(SanitizeProjectName("Why Do We Dream?"), ShouldEqual, "why_do_we_dream")
		So(SanitizeProjectName("  spaces   and-dashes  "), ShouldEqual, "spaces_and_dashes")
		So(SanitizeProjectName("emoji 🚀 topic!"), ShouldEqual, "emoji_topic")
		So(SanitizeProjectName("___"), ShouldEqual, "")

		long := SanitizeProjectName(repeatWord("topic ", 40))
		So(len(long), ShouldBeLessThanOrEqualTo, 100)
	})
}

func repeatWord(w string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += w
	}
	return out
}

// TestGeneratorService_Admission 测试提交准入控制
func TestGeneratorService_Admission(t *testing.T) {
	Convey("任务准入测试", t, func() {
		svc, journals, progress := newTestGenerator(t)

		Convey("并发名额占满时任务排队而不是被拒绝", func() {
			svc.sem <- struct{}{}

			resp, err := svc.StartGeneration(&model.GenerateRequest{
				Topic:    "ocean mysteries",
				Category: "why",
			})
			So(err, ShouldBeNil)
			So(resp.ProgressID, ShouldNotBeEmpty)

			// 提交后立刻可以轮询到排队状态
			rec := progress.Get(resp.ProgressID)
			So(rec.Status, ShouldEqual, model.StatusProcessing)
			So(rec.Step, ShouldEqual, "Queued")
			So(rec.Percentage, ShouldEqual, 0)

			// 名额释放后任务继续执行，脚本阶段因无 LLM 客户端失败
			<-svc.sem
			rec = waitForStatus(t, progress, resp.ProgressID, model.StatusError)
			So(rec.Status, ShouldEqual, model.StatusError)
		})

		Convey("重复主题直接拒绝", func() {
			So(journals.MarkCompleted("ocean mysteries"), ShouldBeNil)

			_, err := svc.StartGeneration(&model.GenerateRequest{
				Topic:    "ocean mysteries",
				Category: "why",
			})
			So(err, ShouldEqual, ErrDuplicateTopic)
		})
	})
}

// TestGeneratorService_FailJob 测试失败收尾：删目录、注销台账、写错误进度
func TestGeneratorService_FailJob(t *testing.T) {
	Convey("任务失败收尾测试", t, func() {
		svc, journals, progress := newTestGenerator(t)

		job := &model.Job{
			Topic:      "volcano facts",
			VideoType:  model.VideoTypeStandard,
			ProgressID: "standard_why_123",
		}
		projectName := SanitizeProjectName(job.Topic)
		projectDir := filepath.Join(svc.cfg.Pipeline.OutputDir, projectName)
		So(os.MkdirAll(projectDir, 0o755), ShouldBeNil)
		progress.Bind(job.ProgressID, projectDir)
		So(journals.AddGenerating(projectName, journal.GeneratingEntry{
			Topic:      job.Topic,
			ProgressID: job.ProgressID,
		}), ShouldBeNil)

		svc.failJob(job, projectDir, projectName, model.NewAudioError("generated audio is too short: 0.40s", nil))

		Convey("项目目录被删除", func() {
			_, err := os.Stat(projectDir)
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("错误进度写入后目录不会被快照复活", func() {
			rec := progress.Get(job.ProgressID)
			progress.Update(rec)

			_, err := os.Stat(projectDir)
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("进行中台账被注销", func() {
			m, err := journals.ListGenerating()
			So(err, ShouldBeNil)
			So(m, ShouldNotContainKey, projectName)
		})

		Convey("进度记录为错误状态并带失败原因", func() {
			rec := progress.Get(job.ProgressID)
			So(rec.Status, ShouldEqual, model.StatusError)
			So(rec.Percentage, ShouldEqual, 0)
			So(rec.Details, ShouldContainSubstring, "too short")
		})
	})
}
