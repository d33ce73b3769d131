// Package texture 负责分层纹理的落盘。写入失败只影响纹理是否可用，
// 不影响分层的掩码和包围盒。
package texture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/ksuid"

	"github.com/chaos-io/depth2layer/util"
)

// Store 纹理存储，返回可供前端引用的路径
type Store interface {
	Put(ctx context.Context, name string, img image.Image) (string, error)
}

// FileStore 把纹理写到本地目录，文件名为 {name}_{ksuid}.{ext}。
// BaseURL 非空时返回 {BaseURL}/{文件名}，否则返回本地文件路径。
type FileStore struct {
	Dir     string
	Format  string
	BaseURL string
}

func NewFileStore(dir, format string) (*FileStore, error) {
	format = strings.ToLower(format)
	switch format {
	case "":
		format = "png"
	case "png", "jpg":
	case "jpeg":
		format = "jpg"
	default:
		return nil, fmt.Errorf("unsupported texture format %q", format)
	}
	return &FileStore{Dir: dir, Format: format}, nil
}

func (s *FileStore) Put(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create texture dir: %w", err)
	}

	file := fmt.Sprintf("%s_%s.%s", name, ksuid.New().String(), s.Format)
	path := filepath.Join(s.Dir, file)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create texture file: %w", err)
	}

	if err := util.EncodeImage(f, img, s.Format); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("encode texture: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close texture file: %w", err)
	}
	if s.BaseURL != "" {
		return strings.TrimSuffix(s.BaseURL, "/") + "/" + file, nil
	}
	return path, nil
}
