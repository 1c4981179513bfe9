// Package fanout 有界并发的批量任务调度。
// 上游素材/生成接口不稳定且有速率限制：每轮用固定大小的 worker 池跑完当前
// 待办集合，失败的槽位进入下一轮重试，轮数用尽后由兜底函数补齐，
// 结果始终按输入槽位顺序返回。
package fanout

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNoTasks 任务列表为空
var ErrNoTasks = errors.New("fanout: no tasks to run")

// Task 单个槽位的工作函数，返回结果或错误
type Task func(ctx context.Context) (string, error)

// Fallback 兜底函数，按槽位下标生成替代结果
type Fallback func(index int) (string, error)

// Run 执行一批任务。
//   - workers: 每轮的并发上限
//   - rounds: 总尝试轮数（含首轮）
//   - fallback: 轮数用尽后为仍失败的槽位生成兜底结果，可为 nil
//
// 返回值与 tasks 等长且顺序一致；单个任务失败不会让整批失败，
// 仅当任务列表为空时返回错误。兜底也失败的槽位在结果中为空字符串。
func Run(ctx context.Context, tasks []Task, workers, rounds int, fallback Fallback) ([]string, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if workers <= 0 {
		workers = 1
	}
	if rounds <= 0 {
		rounds = 1
	}

	results := make([]string, len(tasks))

	// 待办集合：槽位下标 -> 任务；成功后移除
	pending := make(map[int]Task, len(tasks))
	for i, task := range tasks {
		pending[i] = task
	}

	for attempt := 0; attempt < rounds && len(pending) > 0; attempt++ {
		log.Debug().
			Int("attempt", attempt+1).
			Int("pending", len(pending)).
			Msg("fanout round start")

		runRound(ctx, pending, results, workers)

		if len(pending) > 0 && attempt < rounds-1 {
			log.Warn().
				Int("failed", len(pending)).
				Int("attempt", attempt+1).
				Msg("tasks failed, retrying failed subset")
		}
	}

	// 兜底补齐仍失败的槽位
	if fallback != nil {
		for index := range pending {
			value, err := fallback(index)
			if err != nil {
				log.Error().Err(err).Int("index", index).Msg("fallback failed for slot")
				continue
			}
			results[index] = value
		}
	}

	return results, nil
}

// runRound 用有界 worker 池跑一轮待办任务，成功的槽位从 pending 移除
func runRound(ctx context.Context, pending map[int]Task, results []string, workers int) {
	type outcome struct {
		index int
		value string
		err   error
	}

	indexes := make([]int, 0, len(pending))
	for i := range pending {
		indexes = append(indexes, i)
	}

	jobs := make(chan int)
	outcomes := make(chan outcome, len(indexes))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				value, err := pending[index](ctx)
				outcomes <- outcome{index: index, value: value, err: err}
			}
		}()
	}

	for _, index := range indexes {
		jobs <- index
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	for out := range outcomes {
		if out.err != nil || out.value == "" {
			continue
		}
		results[out.index] = out.value
		delete(pending, out.index)
	}
}
