package texture

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor 定期删除过期的纹理文件
type Janitor struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

func NewJanitor(dir string, maxAge time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		dir:    dir,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start 按 cron 表达式（如 "@every 10m"）调度清理
func (j *Janitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() { j.Sweep() }); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep 删除修改时间早于 maxAge 的文件，返回删除数量
func (j *Janitor) Sweep() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("failed to read texture dir", zap.String("dir", j.dir), zap.Error(err))
		}
		return 0
	}

	deadline := j.now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(deadline) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if err := os.Remove(path); err != nil {
			j.logger.Warn("failed to delete texture", zap.String("file", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("expired textures removed", zap.Int("count", removed))
	}
	return removed
}
