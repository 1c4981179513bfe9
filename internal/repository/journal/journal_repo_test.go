package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// TestJournalRepo_Completed 测试已完成清单的写入与查询
func TestJournalRepo_Completed(t *testing.T) {
	Convey("已完成清单测试", t, func() {
		dir := t.TempDir()
		repo, err := NewJournalRepo(dir)
		So(err, ShouldBeNil)

		Convey("空台账查询返回未完成", func() {
			done, err := repo.IsCompleted("ocean mysteries")
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)
		})

		Convey("标记后可查询到，重复标记不产生重复项", func() {
			So(repo.MarkCompleted("ocean mysteries"), ShouldBeNil)
			So(repo.MarkCompleted("ocean mysteries"), ShouldBeNil)

			done, err := repo.IsCompleted("ocean mysteries")
			So(err, ShouldBeNil)
			So(done, ShouldBeTrue)

			// 直接读文件校验只有一条记录
			data, err := os.ReadFile(filepath.Join(dir, completedFile))
			So(err, ShouldBeNil)
			var j CompletedJournal
			So(json.Unmarshal(data, &j), ShouldBeNil)
			So(j.Completed, ShouldResemble, []string{"ocean mysteries"})
		})

		Convey("台账文件损坏时按空数据处理", func() {
			So(os.WriteFile(filepath.Join(dir, completedFile), []byte("{broken"), 0o644), ShouldBeNil)
			repo2, err := NewJournalRepo(dir)
			So(err, ShouldBeNil)
			done, err := repo2.IsCompleted("anything")
			So(err, ShouldBeNil)
			So(done, ShouldBeFalse)
		})
	})
}

// TestJournalRepo_Generating 测试进行中任务的登记、注销与清理
func TestJournalRepo_Generating(t *testing.T) {
	Convey("进行中任务台账测试", t, func() {
		dir := t.TempDir()
		repo, err := NewJournalRepo(dir)
		So(err, ShouldBeNil)

		Convey("登记后可列出，注销后消失", func() {
			entry := GeneratingEntry{
				Topic:      "space travel",
				ProgressID: "pid-1",
				VideoType:  "standard",
			}
			So(repo.AddGenerating("space_travel", entry), ShouldBeNil)

			m, err := repo.ListGenerating()
			So(err, ShouldBeNil)
			So(m, ShouldContainKey, "space_travel")
			So(m["space_travel"].ProgressID, ShouldEqual, "pid-1")
			// 登记时补齐开始时间
			So(m["space_travel"].StartedAt, ShouldNotBeEmpty)

			So(repo.RemoveGenerating("space_travel"), ShouldBeNil)
			m, err = repo.ListGenerating()
			So(err, ShouldBeNil)
			So(m, ShouldNotContainKey, "space_travel")
		})

		Convey("注销不存在的任务不报错", func() {
			So(repo.RemoveGenerating("never_registered"), ShouldBeNil)
		})

		Convey("清理只移除超时的记录", func() {
			old := GeneratingEntry{
				Topic:      "stale topic",
				ProgressID: "pid-old",
				VideoType:  "shorts",
				StartedAt:  time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339),
			}
			fresh := GeneratingEntry{
				Topic:      "fresh topic",
				ProgressID: "pid-new",
				VideoType:  "standard",
			}
			So(repo.AddGenerating("stale_topic", old), ShouldBeNil)
			So(repo.AddGenerating("fresh_topic", fresh), ShouldBeNil)

			removed, err := repo.CleanupStale()
			So(err, ShouldBeNil)
			So(removed, ShouldResemble, []string{"stale_topic"})

			m, err := repo.ListGenerating()
			So(err, ShouldBeNil)
			So(m, ShouldNotContainKey, "stale_topic")
			So(m, ShouldContainKey, "fresh_topic")
		})

		Convey("开始时间无法解析的记录视为残留", func() {
			So(repo.AddGenerating("bad_time", GeneratingEntry{
				Topic:      "bad",
				ProgressID: "pid-bad",
				StartedAt:  "not-a-timestamp",
			}), ShouldBeNil)

			removed, err := repo.CleanupStale()
			So(err, ShouldBeNil)
			So(removed, ShouldResemble, []string{"bad_time"})
		})
	})
}

// TestJournalRepo_AtomicWrite 测试写入过程不会留下临时文件
func TestJournalRepo_AtomicWrite(t *testing.T) {
	Convey("原子写入测试", t, func() {
		dir := t.TempDir()
		repo, err := NewJournalRepo(dir)
		So(err, ShouldBeNil)

		So(repo.MarkCompleted("topic a"), ShouldBeNil)
		So(repo.AddGenerating("proj", GeneratingEntry{Topic: "topic b", ProgressID: "p"}), ShouldBeNil)

		entries, err := os.ReadDir(dir)
		So(err, ShouldBeNil)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		So(names, ShouldContain, completedFile)
		So(names, ShouldContain, generatingFile)
		So(len(names), ShouldEqual, 2)
	})
}
