package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type Storage struct {
	uploadDir string
}

func NewStorage(uploadDir string) (*Storage, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, err
	}
	return &Storage{uploadDir: uploadDir}, nil
}

func (s *Storage) SaveFile(file io.Reader, filename string) error {
	path := s.GetFilePath(filename)
	out, err := os.Create(path)
	if err != nil {
		slog.Error("Failed to create file", "path", path, "error", err)
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, file)
	if err != nil {
		slog.Error("Failed to save file", "path", path, "error", err)
	}
	return err
}

func (s *Storage) DeleteFile(filename string) error {
	return os.Remove(s.GetFilePath(filename))
}

// Exists 判断文件名是否已被占用，用于冲突检测
func (s *Storage) Exists(filename string) bool {
	_, err := os.Stat(s.GetFilePath(filename))
	return err == nil
}

func (s *Storage) GetFilePath(filename string) string {
	return filepath.Join(s.uploadDir, filename)
}
