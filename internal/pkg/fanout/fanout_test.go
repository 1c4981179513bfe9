package fanout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Run 按槽位顺序返回结果", t, func() {
		Convey("空任务列表返回错误", func() {
			results, err := Run(ctx, nil, 4, 3, nil)
			So(err, ShouldEqual, ErrNoTasks)
			So(results, ShouldBeNil)
		})

		Convey("完成顺序乱序时结果仍与输入槽位对应", func() {
			tasks := make([]Task, 8)
			for i := range tasks {
				index := i
				tasks[index] = func(ctx context.Context) (string, error) {
					// 随机睡眠打乱完成顺序
					time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
					return fmt.Sprintf("asset_%d", index), nil
				}
			}

			results, err := Run(ctx, tasks, 4, 3, nil)
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 8)
			for i, result := range results {
				So(result, ShouldEqual, fmt.Sprintf("asset_%d", i))
			}
		})

		Convey("5 个任务中 2 个始终失败，3 轮后由兜底补齐", func() {
			var attempts [5]int32
			tasks := make([]Task, 5)
			for i := range tasks {
				index := i
				tasks[index] = func(ctx context.Context) (string, error) {
					atomic.AddInt32(&attempts[index], 1)
					if index == 1 || index == 3 {
						return "", errors.New("provider unavailable")
					}
					return fmt.Sprintf("real_%d", index), nil
				}
			}

			results, err := Run(ctx, tasks, 2, 3, func(index int) (string, error) {
				return fmt.Sprintf("placeholder_%d", index), nil
			})
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 5)
			So(results[0], ShouldEqual, "real_0")
			So(results[1], ShouldEqual, "placeholder_1")
			So(results[2], ShouldEqual, "real_2")
			So(results[3], ShouldEqual, "placeholder_3")
			So(results[4], ShouldEqual, "real_4")

			// 成功的任务只跑一次，失败的任务每轮都重试
			So(atomic.LoadInt32(&attempts[0]), ShouldEqual, 1)
			So(atomic.LoadInt32(&attempts[1]), ShouldEqual, 3)
			So(atomic.LoadInt32(&attempts[3]), ShouldEqual, 3)
		})

		Convey("全部失败时每个槽位都得到兜底结果", func() {
			tasks := make([]Task, 6)
			for i := range tasks {
				tasks[i] = func(ctx context.Context) (string, error) {
					return "", errors.New("always fails")
				}
			}

			results, err := Run(ctx, tasks, 3, 2, func(index int) (string, error) {
				return fmt.Sprintf("fallback_%d", index), nil
			})
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 6)
			for i, result := range results {
				So(result, ShouldEqual, fmt.Sprintf("fallback_%d", i))
			}
		})

		Convey("返回空字符串视同失败进入重试", func() {
			var calls int32
			tasks := []Task{
				func(ctx context.Context) (string, error) {
					if atomic.AddInt32(&calls, 1) < 2 {
						return "", nil
					}
					return "eventually", nil
				},
			}

			results, err := Run(ctx, tasks, 1, 3, nil)
			So(err, ShouldBeNil)
			So(results[0], ShouldEqual, "eventually")
		})

		Convey("无兜底函数时失败槽位保持空字符串", func() {
			tasks := []Task{
				func(ctx context.Context) (string, error) { return "", errors.New("nope") },
				func(ctx context.Context) (string, error) { return "ok", nil },
			}

			results, err := Run(ctx, tasks, 2, 2, nil)
			So(err, ShouldBeNil)
			So(results[0], ShouldEqual, "")
			So(results[1], ShouldEqual, "ok")
		})
	})
}
