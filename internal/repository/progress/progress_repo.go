package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"mango/internal/model"
)

const snapshotFile = ".progress.json"

// ProgressRepo 进度仓库，内存为主、项目目录快照兜底
type ProgressRepo struct {
	outputDir string

	mu      sync.Mutex
	records map[string]*model.ProgressRecord
	// 进度ID到项目目录的映射，用于落盘快照
	projects map[string]string
}

// NewProgressRepo 创建进度仓库
func NewProgressRepo(outputDir string) *ProgressRepo {
	return &ProgressRepo{
		outputDir: outputDir,
		records:   make(map[string]*model.ProgressRecord),
		projects:  make(map[string]string),
	}
}

// Bind 绑定进度ID与项目目录，之后的更新会镜像到该目录
func (r *ProgressRepo) Bind(progressID, projectDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[progressID] = projectDir
}

// Update 更新进度并镜像到项目目录快照
func (r *ProgressRepo) Update(rec *model.ProgressRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *rec
	r.records[rec.ProgressID] = &clone

	dir, ok := r.projects[rec.ProgressID]
	if !ok {
		return
	}
	if err := r.writeSnapshot(dir, &clone); err != nil {
		log.Warn().Err(err).Str("progress_id", rec.ProgressID).Msg("写入进度快照失败")
	}
}

// Get 查询进度，未知ID返回等待中状态
func (r *ProgressRepo) Get(progressID string) *model.ProgressRecord {
	r.mu.Lock()
	if rec, ok := r.records[progressID]; ok {
		clone := *rec
		r.mu.Unlock()
		return &clone
	}
	r.mu.Unlock()

	// 内存中没有时扫描工作目录，兼容进程重启后的轮询
	if rec := r.recoverFromDisk(progressID); rec != nil {
		r.mu.Lock()
		r.records[progressID] = rec
		r.mu.Unlock()
		clone := *rec
		return &clone
	}

	rec := model.WaitingProgress()
	rec.ProgressID = progressID
	return rec
}

// Unbind 解除进度ID与项目目录的绑定，保留内存中的进度记录
// 项目目录被删除后调用，之后的更新不再落盘快照
func (r *ProgressRepo) Unbind(progressID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, progressID)
}

// Remove 清除进度记录与目录绑定
func (r *ProgressRepo) Remove(progressID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, progressID)
	delete(r.projects, progressID)
}

func (r *ProgressRepo) writeSnapshot(dir string, rec *model.ProgressRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, snapshotFile+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, snapshotFile))
}

// recoverFromDisk 在输出目录的各项目下寻找匹配的进度快照
func (r *ProgressRepo) recoverFromDisk(progressID string) *model.ProgressRecord {
	entries, err := os.ReadDir(r.outputDir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(r.outputDir, entry.Name(), snapshotFile)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec model.ProgressRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.ProgressID == progressID {
			r.mu.Lock()
			r.projects[progressID] = filepath.Join(r.outputDir, entry.Name())
			r.mu.Unlock()
			return &rec
		}
	}
	return nil
}

// SnapshotPath 返回项目目录下的快照文件路径
func SnapshotPath(projectDir string) string {
	return filepath.Join(projectDir, snapshotFile)
}
