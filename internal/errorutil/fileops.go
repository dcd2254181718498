package errorutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// FileError represents a file operation error with additional context
type FileError struct {
	Operation  string      // read, write_temp, move, backup...
	Path       string      // file being accessed
	Size       int64       // size on disk, when the file exists
	Perm       os.FileMode // mode on disk, when the file exists
	Underlying error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s operation failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *FileError) Unwrap() error {
	return e.Underlying
}

// NewFileError creates a FileError, recording size and mode when the path exists
func NewFileError(operation, path string, err error) *FileError {
	fileErr := &FileError{
		Operation:  operation,
		Path:       path,
		Underlying: err,
	}

	if info, statErr := os.Stat(path); statErr == nil {
		fileErr.Size = info.Size()
		fileErr.Perm = info.Mode()
	}

	return fileErr
}

// LogFileError logs a file error with structured context
func LogFileError(logger *slog.Logger, fileErr *FileError) *FileError {
	if logger == nil {
		return fileErr
	}

	attrs := []slog.Attr{
		slog.String("operation", fileErr.Operation),
		slog.String("file_path", fileErr.Path),
		slog.String("error", fileErr.Underlying.Error()),
		slog.String("error_type", FileErrorType(fileErr.Underlying)),
	}
	if fileErr.Size > 0 {
		attrs = append(attrs, slog.Int64("file_size", fileErr.Size))
	}
	if fileErr.Perm != 0 {
		attrs = append(attrs, slog.String("file_permissions", fileErr.Perm.String()))
	}
	if dir := filepath.Dir(fileErr.Path); dir != "." {
		attrs = append(attrs, slog.String("directory", dir))
	}

	logger.Error("File operation failed", toAny(attrs)...)
	return fileErr
}

// FileErrorType classifies a filesystem error for log output
func FileErrorType(err error) string {
	if err == nil {
		return "unknown"
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "file_not_found"
	case errors.Is(err, fs.ErrPermission):
		return "permission_denied"
	case errors.Is(err, fs.ErrExist):
		return "file_exists"
	case errors.Is(err, syscall.ENOSPC):
		return "no_space_left"
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE):
		return "too_many_open_files"
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return "path_error_" + pathErr.Op
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return "link_error_" + linkErr.Op
	}

	return "generic_file_error"
}

// DirectoryError represents a directory operation error
type DirectoryError struct {
	Operation  string
	Path       string
	Underlying error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *DirectoryError) Unwrap() error {
	return e.Underlying
}

// EnsureDirectoryWithLogging creates path and its parents if needed
func EnsureDirectoryWithLogging(logger *slog.Logger, path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		dirErr := &DirectoryError{Operation: "create", Path: path, Underlying: err}
		if logger != nil {
			logger.Error("Directory operation failed",
				slog.String("operation", dirErr.Operation),
				slog.String("directory_path", path),
				slog.String("error", err.Error()),
				slog.String("error_type", FileErrorType(err)))
		}
		return dirErr
	}

	if logger != nil {
		logger.Debug("Directory ensured",
			slog.String("directory_path", path),
			slog.String("permissions", perm.String()))
	}
	return nil
}

// SafeFileWrite writes data through a temp file and rename.
// An existing file is kept as path.backup until the new content is in place,
// and restored if the final rename fails.
func SafeFileWrite(logger *slog.Logger, path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDirectoryWithLogging(logger, dir, 0755); err != nil {
			return err
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, perm); err != nil {
		return LogFileError(logger, NewFileError("write_temp", tempPath, err))
	}

	backupPath := ""
	if _, err := os.Stat(path); err == nil {
		backupPath = path + ".backup"
		if err := os.Rename(path, backupPath); err != nil {
			os.Remove(tempPath)
			return LogFileError(logger, NewFileError("backup", path, err))
		}
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		if backupPath != "" {
			os.Rename(backupPath, path)
		}
		return LogFileError(logger, NewFileError("move", path, err))
	}

	if backupPath != "" {
		os.Remove(backupPath)
	}

	if logger != nil {
		logger.Debug("File written successfully",
			slog.String("file_path", path),
			slog.Int("bytes_written", len(data)),
			slog.String("permissions", perm.String()))
	}
	return nil
}
