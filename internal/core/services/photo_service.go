package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/adapters/storage"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/core/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Photo service errors
var (
	ErrPhotoNotFound = domain.NotFound("Photo not found")
	ErrNoPhotos      = domain.FieldError("photos", "At least one photo is required")
)

// allowed upload types, by sniffed content type
var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// PhotoService handles issue photos and their stored files
type PhotoService struct {
	photoRepo *repositories.PhotoRepository
	issueRepo *repositories.IssueRepository
	store     storage.BlobStore
	cfg       config.UploadConfig
	log       *zap.SugaredLogger
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photoRepo *repositories.PhotoRepository,
	issueRepo *repositories.IssueRepository,
	store storage.BlobStore,
	cfg config.UploadConfig,
	log *zap.SugaredLogger,
) *PhotoService {
	return &PhotoService{
		photoRepo: photoRepo,
		issueRepo: issueRepo,
		store:     store,
		cfg:       cfg,
		log:       log,
	}
}

// upload is a validated file waiting to be written
type upload struct {
	header      *multipart.FileHeader
	contentType string
	ext         string
}

// List returns the photos of a visible issue
func (s *PhotoService) List(ctx context.Context, actor domain.Actor, issueID uint) ([]*models.Photo, error) {
	if _, err := visibleIssue(ctx, s.issueRepo, actor, issueID); err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if photos == nil {
		photos = []*models.Photo{}
	}
	return photos, nil
}

// Upload stores a batch of photos for a visible issue. The batch is
// all-or-nothing: nothing is kept when any file fails or the issue would
// exceed its photo cap.
func (s *PhotoService) Upload(ctx context.Context, actor domain.Actor, issueID uint, files []*multipart.FileHeader) ([]*models.Photo, error) {
	if _, err := visibleIssue(ctx, s.issueRepo, actor, issueID); err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, domain.ResourcePhoto, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}

	uploads, err := s.validate(files)
	if err != nil {
		return nil, err
	}

	existing, err := s.photoRepo.CountByIssue(ctx, issueID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if err := s.checkCap(existing, len(uploads)); err != nil {
		return nil, err
	}

	var written []string
	photos := make([]*models.Photo, 0, len(uploads))
	for _, u := range uploads {
		name := uuid.NewString() + "." + u.ext
		key := path.Join("issues", fmt.Sprint(issueID), name)
		if err := s.put(ctx, key, u); err != nil {
			s.removeBlobs(ctx, written)
			return nil, domain.Internal(err)
		}
		written = append(written, key)

		photos = append(photos, &models.Photo{
			IssueID:      issueID,
			UploadedByID: actor.ID,
			FileName:     name,
			OriginalName: u.header.Filename,
			MimeType:     u.contentType,
			Size:         u.header.Size,
			Path:         key,
		})
	}

	if err := s.photoRepo.CreateBatch(ctx, photos); err != nil {
		s.removeBlobs(ctx, written)
		return nil, domain.Internal(err)
	}

	// concurrent uploads may have raced past the first check
	total, err := s.photoRepo.CountByIssue(ctx, issueID)
	if err == nil && total > int64(s.cfg.MaxPhotosPerIssue) {
		for _, p := range photos {
			if delErr := s.photoRepo.Delete(ctx, p.ID); delErr != nil {
				s.log.Errorw("failed to roll back photo record", "photoId", p.ID, "error", delErr)
			}
		}
		s.removeBlobs(ctx, written)
		return nil, s.checkCap(total-int64(len(photos)), len(photos))
	}

	s.log.Infow("photos uploaded", "issueId", issueID, "count", len(photos), "by", actor.ID)
	return photos, nil
}

// Open returns a photo and a reader over its stored file
func (s *PhotoService) Open(ctx context.Context, actor domain.Actor, photoID uint) (*models.Photo, io.ReadCloser, error) {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, nil, lookupErr(err, ErrPhotoNotFound)
	}
	if _, err := visibleIssue(ctx, s.issueRepo, actor, photo.IssueID); err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Open(ctx, photo.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, domain.NotFound("Photo file not found")
		}
		return nil, nil, domain.Internal(err)
	}
	return photo, rc, nil
}

// Delete removes a photo record and its file
func (s *PhotoService) Delete(ctx context.Context, actor domain.Actor, photoID uint) error {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return lookupErr(err, ErrPhotoNotFound)
	}
	issue, err := s.issueRepo.GetByID(ctx, photo.IssueID)
	if err != nil {
		return lookupErr(err, ErrIssueNotFound)
	}

	own := domain.Ownership{
		Owner:       photo.UploadedByID == actor.ID,
		ParentOwner: issue.CreatedByID == actor.ID,
	}
	if err := domain.Authorize(actor, domain.ResourcePhoto, domain.ActionDelete, own); err != nil {
		return err
	}

	if err := s.photoRepo.Delete(ctx, photoID); err != nil {
		return domain.Internal(err)
	}
	s.removeBlobs(ctx, []string{photo.Path})
	return nil
}

func (s *PhotoService) validate(files []*multipart.FileHeader) ([]upload, error) {
	if len(files) == 0 {
		return nil, ErrNoPhotos
	}
	if s.cfg.MaxFilesPerUpload > 0 && len(files) > s.cfg.MaxFilesPerUpload {
		return nil, domain.FieldError("photos", fmt.Sprintf("At most %d photos per upload", s.cfg.MaxFilesPerUpload))
	}

	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > int64(s.cfg.MaxUploadSize) {
			return nil, domain.FieldError("photos", fmt.Sprintf("File '%s' exceeds the maximum upload size", fh.Filename))
		}
		contentType, err := sniff(fh)
		if err != nil {
			return nil, domain.Internal(err)
		}
		ext, ok := photoExtensions[contentType]
		if !ok {
			return nil, domain.FieldError("photos", fmt.Sprintf("File '%s' must be a JPEG, PNG or WebP image", fh.Filename))
		}
		uploads = append(uploads, upload{header: fh, contentType: contentType, ext: ext})
	}
	return uploads, nil
}

func (s *PhotoService) checkCap(existing int64, adding int) error {
	if existing+int64(adding) > int64(s.cfg.MaxPhotosPerIssue) {
		return domain.FieldError("photos", fmt.Sprintf(
			"An issue can have at most %d photos (currently %d)", s.cfg.MaxPhotosPerIssue, existing))
	}
	return nil
}

func (s *PhotoService) put(ctx context.Context, key string, u upload) error {
	f, err := u.header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.store.Put(ctx, key, f, u.header.Size, u.contentType)
}

func (s *PhotoService) removeBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warnw("failed to remove photo file", "path", key, "error", err)
		}
	}
}

// sniff detects the content type from the first bytes of the file
func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ct := http.DetectContentType(buf[:n])
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct, nil
}
