package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	completedFile  = "progress.json"
	generatingFile = "generating_videos.json"

	// 读缓存有效期，避免轮询时反复读盘
	cacheTTL = time.Second

	// 文件锁最长等待时间，超时后退回读取旧数据
	lockWait     = 2 * time.Second
	lockInterval = 50 * time.Millisecond

	// 超过该时长的进行中记录视为残留
	staleAfter = time.Hour
)

// CompletedJournal 已完成主题清单
type CompletedJournal struct {
	Completed []string `json:"completed"`
}

// GeneratingEntry 进行中任务登记项
type GeneratingEntry struct {
	Topic      string `json:"topic"`
	ProgressID string `json:"progress_id"`
	VideoType  string `json:"video_type"`
	StartedAt  string `json:"started_at"`
}

// JournalRepo 基于JSON文件的任务台账
type JournalRepo struct {
	dataDir string

	mu             sync.Mutex
	completedCache *CompletedJournal
	completedAt    time.Time
	generatingAt   time.Time
	generating     map[string]GeneratingEntry
}

// NewJournalRepo 创建任务台账
func NewJournalRepo(dataDir string) (*JournalRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JournalRepo{dataDir: dataDir}, nil
}

// MarkCompleted 将主题记入已完成清单
func (r *JournalRepo) MarkCompleted(topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.readCompletedLocked()
	if err != nil {
		return err
	}
	for _, t := range j.Completed {
		if t == topic {
			return nil
		}
	}
	j.Completed = append(j.Completed, topic)
	if err := r.writeJSON(completedFile, j); err != nil {
		return err
	}
	r.completedCache = j
	r.completedAt = time.Now()
	return nil
}

// UnmarkCompleted 从已完成清单中移除主题
func (r *JournalRepo) UnmarkCompleted(topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.readCompletedLocked()
	if err != nil {
		return err
	}
	kept := j.Completed[:0]
	for _, t := range j.Completed {
		if t != topic {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(j.Completed) {
		return nil
	}
	j.Completed = kept
	if err := r.writeJSON(completedFile, j); err != nil {
		return err
	}
	r.completedCache = j
	r.completedAt = time.Now()
	return nil
}

// IsCompleted 判断主题是否已生成过
func (r *JournalRepo) IsCompleted(topic string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.readCompletedLocked()
	if err != nil {
		return false, err
	}
	for _, t := range j.Completed {
		if t == topic {
			return true, nil
		}
	}
	return false, nil
}

// AddGenerating 登记进行中任务
func (r *JournalRepo) AddGenerating(project string, entry GeneratingEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.readGeneratingLocked()
	if err != nil {
		return err
	}
	if entry.StartedAt == "" {
		entry.StartedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m[project] = entry
	if err := r.writeJSON(generatingFile, m); err != nil {
		return err
	}
	r.generating = m
	r.generatingAt = time.Now()
	return nil
}

// RemoveGenerating 注销进行中任务
func (r *JournalRepo) RemoveGenerating(project string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.readGeneratingLocked()
	if err != nil {
		return err
	}
	if _, ok := m[project]; !ok {
		return nil
	}
	delete(m, project)
	if err := r.writeJSON(generatingFile, m); err != nil {
		return err
	}
	r.generating = m
	r.generatingAt = time.Now()
	return nil
}

// ListGenerating 列出进行中任务
func (r *JournalRepo) ListGenerating() (map[string]GeneratingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.readGeneratingLocked()
	if err != nil {
		return nil, err
	}
	out := make(map[string]GeneratingEntry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// CleanupStale 清理超时的进行中记录，返回被清理的项目名
func (r *JournalRepo) CleanupStale() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.readGeneratingLocked()
	if err != nil {
		return nil, err
	}

	var removed []string
	now := time.Now()
	for project, entry := range m {
		started, err := time.Parse(time.RFC3339, entry.StartedAt)
		if err != nil || now.Sub(started) > staleAfter {
			delete(m, project)
			removed = append(removed, project)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := r.writeJSON(generatingFile, m); err != nil {
		return nil, err
	}
	r.generating = m
	r.generatingAt = time.Now()
	log.Info().Strs("projects", removed).Msg("清理残留的生成记录")
	return removed, nil
}

func (r *JournalRepo) readCompletedLocked() (*CompletedJournal, error) {
	if r.completedCache != nil && time.Since(r.completedAt) < cacheTTL {
		return &CompletedJournal{Completed: append([]string(nil), r.completedCache.Completed...)}, nil
	}

	j := &CompletedJournal{Completed: []string{}}
	if err := r.readJSON(completedFile, j); err != nil {
		return nil, err
	}
	r.completedCache = &CompletedJournal{Completed: append([]string(nil), j.Completed...)}
	r.completedAt = time.Now()
	return j, nil
}

func (r *JournalRepo) readGeneratingLocked() (map[string]GeneratingEntry, error) {
	if r.generating != nil && time.Since(r.generatingAt) < cacheTTL {
		out := make(map[string]GeneratingEntry, len(r.generating))
		for k, v := range r.generating {
			out[k] = v
		}
		return out, nil
	}

	m := map[string]GeneratingEntry{}
	if err := r.readJSON(generatingFile, &m); err != nil {
		return nil, err
	}
	cached := make(map[string]GeneratingEntry, len(m))
	for k, v := range m {
		cached[k] = v
	}
	r.generating = cached
	r.generatingAt = time.Now()
	return m, nil
}

// readJSON 带文件锁读取，文件不存在时保持零值
func (r *JournalRepo) readJSON(name string, v any) error {
	path := filepath.Join(r.dataDir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	locked := r.tryLock(f, syscall.LOCK_SH)
	if locked {
		defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	} else {
		log.Warn().Str("file", name).Msg("获取共享锁超时，读取可能过期的数据")
	}

	dec := json.NewDecoder(f)
	if err := dec.Decode(v); err != nil {
		// 文件损坏时按空台账处理，不阻塞整条流水线
		log.Warn().Err(err).Str("file", name).Msg("台账文件损坏，按空数据处理")
		return nil
	}
	return nil
}

// writeJSON 临时文件加重命名，保证读者不会看到半截内容
func (r *JournalRepo) writeJSON(name string, v any) error {
	path := filepath.Join(r.dataDir, name)
	tmp, err := os.CreateTemp(r.dataDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	locked := r.tryLock(tmp, syscall.LOCK_EX)
	if locked {
		defer syscall.Flock(int(tmp.Fd()), syscall.LOCK_UN)
	}

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// tryLock 非阻塞加锁并在限定时间内重试
func (r *JournalRepo) tryLock(f *os.File, how int) bool {
	deadline := time.Now().Add(lockWait)
	for {
		if err := syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB); err == nil {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(lockInterval)
	}
}
