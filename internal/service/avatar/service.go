package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/avatar-compressor/internal/compressor"
	"github.com/aliskhannn/avatar-compressor/internal/model"
	"github.com/aliskhannn/avatar-compressor/internal/repository/preference"
	"github.com/aliskhannn/avatar-compressor/internal/storage/file"
)

// thumbnailSize is the square side of the generated avatar thumbnail.
const thumbnailSize = 200

// fileStorage defines the interface for storing files (e.g., local filesystem or S3).
type fileStorage interface {
	Save(ctx context.Context, subdir, filename, contentType string, src io.Reader) (string, error)
	Load(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// producer defines the interface for enqueueing tasks into a message broker (e.g., Kafka).
type producer interface {
	Produce(ctx context.Context, task model.Task) error
}

// avatarRepo defines the interface for avatar metadata persistence.
type avatarRepo interface {
	Create(ctx context.Context, a model.Avatar) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (model.Avatar, error)
	SetProcessed(ctx context.Context, id uuid.UUID, compressedPath, thumbnailPath string, compressedSize int64) error
	SetFailed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// preferenceRepo defines the interface for reading the target size preference.
type preferenceRepo interface {
	Get(ctx context.Context) (int, error)
}

// Service provides business logic for avatar uploads. It saves originals
// to storage and, when a size preference is stored, publishes compression
// tasks to a queue.
type Service struct {
	fileStorage fileStorage
	producer    producer
	avatars     avatarRepo
	preferences preferenceRepo
}

// NewService creates a new Service with the given storage, producer and repositories.
func NewService(fs fileStorage, p producer, ar avatarRepo, pr preferenceRepo) *Service {
	return &Service{fileStorage: fs, producer: p, avatars: ar, preferences: pr}
}

// SaveAvatar stores the uploaded file and enqueues background compression.
//
// The size preference is read once at the start of the call. When no
// preference is stored, the original passes through untouched: the row is
// marked processed immediately and no compression task is produced.
func (s *Service) SaveAvatar(ctx context.Context, ownerID uuid.UUID, filename, contentType string, size int64, src io.Reader) (uuid.UUID, string, error) {
	targetKB, err := s.preferences.Get(ctx)
	if err != nil {
		if !errors.Is(err, preference.ErrPreferenceNotSet) {
			return uuid.Nil, "", fmt.Errorf("upload: failed to read preference: %w", err)
		}

		targetKB = 0
	}

	// Generate a unique ID for the avatar. It prefixes every stored
	// object name, so concurrent uploads of the same filename never
	// touch each other's objects.
	id := uuid.New()

	dst, err := s.fileStorage.Save(ctx, file.SubdirOriginal, objectName(id, filename), contentType, src)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("upload: failed to save file: %w", err)
	}

	status := model.StatusPending
	if targetKB == 0 {
		status = model.StatusProcessed
	}

	id, err = s.avatars.Create(ctx, model.Avatar{
		ID:           id,
		OwnerID:      ownerID,
		Filename:     filename,
		Path:         dst,
		OriginalSize: size,
		TargetKB:     targetKB,
		Status:       status,
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("upload: failed to save avatar: %w", err)
	}

	if targetKB == 0 {
		zlog.Logger.Info().
			Str("filename", filename).
			Msg("no size preference stored, skipping compression")
		return id, dst, nil
	}

	task := model.Task{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    filename,
		ContentType: contentType,
		Path:        dst,
		TargetKB:    targetKB,
	}

	// Enqueue the task for asynchronous processing.
	if err := s.producer.Produce(ctx, task); err != nil {
		return uuid.Nil, "", fmt.Errorf("upload: failed to enqueue task: %w", err)
	}

	return id, dst, nil
}

// ProcessTask loads the original image, runs the adaptive compressor
// against the task's target size, stores the compressed JPEG and a
// thumbnail, and updates the avatar status.
func (s *Service) ProcessTask(ctx context.Context, task model.Task) error {
	srcReader, err := s.fileStorage.Load(ctx, task.Path)
	if err != nil {
		return fmt.Errorf("process: failed to load original: %w", err)
	}
	defer srcReader.Close()

	res, err := compressor.CompressReader(srcReader, task.Filename, task.ContentType, task.TargetKB)
	if err != nil {
		if ferr := s.avatars.SetFailed(ctx, task.ID); ferr != nil {
			zlog.Logger.Err(ferr).Msg("failed to mark avatar as failed")
		}

		return fmt.Errorf("process: compression failed: %w", err)
	}

	compressedPath, err := s.fileStorage.Save(ctx, file.SubdirCompressed, objectName(task.ID, res.Filename), res.ContentType, bytes.NewReader(res.Data))
	if err != nil {
		return fmt.Errorf("process: failed to save compressed image: %w", err)
	}

	thumbnailPath, err := s.saveThumbnail(ctx, objectName(task.ID, res.Filename), res)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}

	if err := s.avatars.SetProcessed(ctx, task.ID, compressedPath, thumbnailPath, res.Size()); err != nil {
		return fmt.Errorf("process: failed to update avatar: %w", err)
	}

	return nil
}

// objectName builds the storage object name for an avatar's variants.
// Prefixing the ID keeps uploads with identical filenames apart.
func objectName(id uuid.UUID, filename string) string {
	return fmt.Sprintf("%s_%s", id, filename)
}

// saveThumbnail generates a square thumbnail from the compressed result
// and stores it under the given object name.
func (s *Service) saveThumbnail(ctx context.Context, name string, res *compressor.Result) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode compressed image: %w", err)
	}

	thumb := imaging.Thumbnail(img, thumbnailSize, thumbnailSize, imaging.Lanczos)

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	path, err := s.fileStorage.Save(ctx, file.SubdirThumbnails, name, compressor.OutputContentType, buf)
	if err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return path, nil
}

// GetAvatarMeta returns the avatar metadata only, without loading any
// stored bytes. Suited to status polling.
func (s *Service) GetAvatarMeta(ctx context.Context, id uuid.UUID) (model.Avatar, error) {
	return s.avatars.Get(ctx, id)
}

// GetAvatar returns the avatar metadata and a reader over its preferred
// bytes: the compressed variant when processing finished, the original
// otherwise.
func (s *Service) GetAvatar(ctx context.Context, id uuid.UUID) (model.Avatar, io.ReadCloser, error) {
	a, err := s.avatars.Get(ctx, id)
	if err != nil {
		return model.Avatar{}, nil, err
	}

	path := a.Path
	if a.CompressedPath != "" {
		path = a.CompressedPath
	}

	reader, err := s.fileStorage.Load(ctx, path)
	if err != nil {
		return model.Avatar{}, nil, fmt.Errorf("get: failed to load file: %w", err)
	}

	return a, reader, nil
}

// DeleteAvatar removes the avatar row and every stored variant.
func (s *Service) DeleteAvatar(ctx context.Context, id uuid.UUID) error {
	a, err := s.avatars.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.avatars.Delete(ctx, id); err != nil {
		return err
	}

	for _, path := range []string{a.Path, a.CompressedPath, a.ThumbnailPath} {
		if path == "" {
			continue
		}

		if err := s.fileStorage.Delete(ctx, path); err != nil {
			zlog.Logger.Err(err).Str("path", path).Msg("failed to delete stored file")
		}
	}

	return nil
}
