package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mango/internal/model"
	"mango/internal/pkg/ffmpeg"
	"mango/internal/repository/journal"
)

func writeJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestLibraryService 测试视频库的列表、元数据与删除
func TestLibraryService(t *testing.T) {
	Convey("视频库测试", t, func() {
		outputDir := t.TempDir()
		journals, err := journal.NewJournalRepo(t.TempDir())
		So(err, ShouldBeNil)
		svc := NewLibraryService(outputDir, ffmpeg.NewClient(), journals)
		ctx := context.Background()

		// 已完成项目：有成品和元数据
		doneDir := filepath.Join(outputDir, "ocean_mysteries")
		So(os.MkdirAll(doneDir, 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(doneDir, finalVideoFile), []byte("video-bytes"), 0o644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(doneDir, thumbnailFile), []byte("jpg-bytes"), 0o644), ShouldBeNil)
		writeJSONFile(t, filepath.Join(doneDir, metadataFile), &model.Metadata{
			Title:     "Ocean Mysteries",
			VideoType: "standard",
		})

		// 生成中项目：只有进度快照
		genDir := filepath.Join(outputDir, "volcano_facts")
		So(os.MkdirAll(genDir, 0o755), ShouldBeNil)
		writeJSONFile(t, filepath.Join(genDir, progressFile), &model.ProgressRecord{
			Step:       "Rendering video",
			Percentage: 80,
			Status:     model.StatusProcessing,
			ProgressID: "pid-gen",
		})
		So(journals.AddGenerating("volcano_facts", journal.GeneratingEntry{
			Topic:      "volcano facts",
			ProgressID: "pid-gen",
			VideoType:  "shorts",
		}), ShouldBeNil)

		Convey("列表包含已完成和生成中的项目", func() {
			projects, err := svc.ListProjects(ctx)
			So(err, ShouldBeNil)
			So(len(projects), ShouldEqual, 2)

			byName := map[string]model.ProjectInfo{}
			for _, p := range projects {
				byName[p.Name] = p
			}

			done := byName["ocean_mysteries"]
			So(done.Status, ShouldEqual, "completed")
			So(done.HasMetadata, ShouldBeTrue)
			So(done.VideoPath, ShouldContainSubstring, "ocean_mysteries")
			So(done.Thumbnail, ShouldNotBeEmpty)

			gen := byName["volcano_facts"]
			So(gen.Status, ShouldEqual, "generating")
			So(gen.DisplayName, ShouldEqual, "volcano facts")
			So(gen.ProgressID, ShouldEqual, "pid-gen")
			So(gen.VideoType, ShouldEqual, "shorts")
		})

		Convey("读取元数据", func() {
			md, err := svc.GetMetadata("ocean_mysteries")
			So(err, ShouldBeNil)
			So(md.Title, ShouldEqual, "Ocean Mysteries")

			_, err = svc.GetMetadata("never_generated")
			So(err, ShouldEqual, ErrProjectNotFound)
		})

		Convey("删除项目清理目录和台账", func() {
			So(journals.MarkCompleted("Ocean Mysteries"), ShouldBeNil)

			So(svc.DeleteProject("ocean_mysteries"), ShouldBeNil)

			_, err := os.Stat(doneDir)
			So(os.IsNotExist(err), ShouldBeTrue)

			done, err := journals.IsCompleted("Ocean Mysteries")
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)
		})

		Convey("删除不存在的项目返回未找到", func() {
			So(svc.DeleteProject("missing_project"), ShouldEqual, ErrProjectNotFound)
		})
	})
}
