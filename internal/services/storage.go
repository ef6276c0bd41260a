package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/cv-ranker/internal/models"
)

var ErrFileTooLarge = errors.New("file too large")

var allowedExtensions = map[string]models.DocumentFormat{
	".pdf":  models.FormatPDF,
	".doc":  models.FormatDOC,
	".docx": models.FormatDOCX,
}

// FormatFromFilename maps a file extension to a document format.
func FormatFromFilename(name string) (models.DocumentFormat, error) {
	ext := strings.ToLower(filepath.Ext(name))
	format, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: invalid file extension %q", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

type StoredFile struct {
	Filename string
	FilePath string
	Format   models.DocumentFormat
}

type StorageService interface {
	EnsureUploadDir() error
	CreateSessionDir(sessionID string) (string, error)
	RemoveSessionDir(sessionID string) error
	SaveFile(sessionID string, file *multipart.FileHeader) (*StoredFile, error)
	ReadFile(sessionID, filename string) ([]byte, error)
	FilePath(sessionID, filename string) (string, error)
}

type storageService struct {
	uploadPath  string
	maxFileSize int64
}

func NewStorageService(uploadPath string, maxFileSize int64) StorageService {
	return &storageService{
		uploadPath:  uploadPath,
		maxFileSize: maxFileSize,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) sessionDir(sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", fmt.Errorf("%w: invalid session id %q", ErrInvalidParameter, sessionID)
	}
	return filepath.Join(s.uploadPath, sessionID), nil
}

func (s *storageService) CreateSessionDir(sessionID string) (string, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

func (s *storageService) RemoveSessionDir(sessionID string) error {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

func (s *storageService) SaveFile(sessionID string, file *multipart.FileHeader) (*StoredFile, error) {
	format, err := FormatFromFilename(file.Filename)
	if err != nil {
		return nil, err
	}

	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, file.Filename, file.Size, s.maxFileSize)
	}

	dir, err := s.CreateSessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	// Generate the unique filename
	ext := strings.ToLower(filepath.Ext(file.Filename))
	uniqueFilename := fmt.Sprintf("cv_%s%s", uuid.New().String(), ext)
	filePath := filepath.Join(dir, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &StoredFile{
		Filename: uniqueFilename,
		FilePath: filePath,
		Format:   format,
	}, nil
}

// FilePath resolves a stored file inside its session directory. Names that
// would escape the directory are rejected.
func (s *storageService) FilePath(sessionID, filename string) (string, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}

	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", ErrInvalidParameter, filename)
	}

	return filepath.Join(dir, filename), nil
}

func (s *storageService) ReadFile(sessionID, filename string) ([]byte, error) {
	path, err := s.FilePath(sessionID, filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
