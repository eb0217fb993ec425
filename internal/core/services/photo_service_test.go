package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// fileHeaders builds multipart file headers the way a request would carry them
func fileHeaders(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := w.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["photos"]
}

func pngFiles(t *testing.T, n int) []*multipart.FileHeader {
	files := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		files[fmt.Sprintf("photo%d.png", i)] = append(append([]byte{}, pngHeader...), byte(i))
	}
	return fileHeaders(t, files)
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestPhotoService_UploadAndOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Λακκούβα")

	photos, err := env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 2))
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, "image/png", photos[0].MimeType)
	assert.Contains(t, photos[0].Path, fmt.Sprintf("issues/%d/", issue.ID))

	_, rc, err := env.photos.Open(ctx, citizen, photos[0].ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data[:len(pngHeader)])

	stranger := env.user(t, domain.RoleUser)
	_, _, err = env.photos.Open(ctx, stranger, photos[0].ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestPhotoService_BatchOverCapIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Λακκούβα")

	_, err := env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 2))
	require.NoError(t, err)
	root := env.store.Root()
	before := countFiles(t, root)

	// cap is 3: two existing plus two new must fail as a whole
	_, err = env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 2))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	count, err := env.photoRepo.CountByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, before, countFiles(t, root))
}

func TestPhotoService_ConcurrentUploadPastCapRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Λακκούβα")

	first, err := env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 1))
	require.NoError(t, err)
	root := env.store.Root()
	before := countFiles(t, root)

	// another request lands its photo after our cap check, before our insert
	raced := false
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:competing_upload", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "photos" {
			return
		}
		raced = true
		competing := &models.Photo{IssueID: issue.ID, UploadedByID: citizen.ID, FileName: "other.png", Path: "issues/other.png"}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(competing).Error; err != nil {
			_ = tx.AddError(err)
		}
	}))

	// 1 existing + 2 new passes the first check, the competitor makes it 4 of 3
	_, err = env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 2))
	require.True(t, raced)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	photos, err := env.photoRepo.ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, first[0].ID, photos[0].ID)
	assert.Equal(t, "other.png", photos[1].FileName)
	assert.Equal(t, before, countFiles(t, root))
}

func TestPhotoService_RejectsNonImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Λακκούβα")

	files := fileHeaders(t, map[string][]byte{"notes.png": []byte("just some text")})
	_, err := env.photos.Upload(ctx, citizen, issue.ID, files)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.photos.Upload(ctx, citizen, issue.ID, nil)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestPhotoService_DeletePolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	office := env.user(t, domain.RoleOffice)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Λακκούβα")

	staffPhotos, err := env.photos.Upload(ctx, office, issue.ID, pngFiles(t, 1))
	require.NoError(t, err)
	ownPhotos, err := env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 1))
	require.NoError(t, err)

	// office staff cannot delete a citizen's photo
	assert.True(t, errors.Is(env.photos.Delete(ctx, office, ownPhotos[0].ID), domain.ErrForbidden))
	// the issue creator can delete any photo on their issue
	require.NoError(t, env.photos.Delete(ctx, citizen, staffPhotos[0].ID))
	// uploader can delete their own
	require.NoError(t, env.photos.Delete(ctx, citizen, ownPhotos[0].ID))

	count, err := env.photoRepo.CountByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, countFiles(t, env.store.Root()))
}

func TestIssueService_DeleteRemovesPhotoFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	citizen := env.user(t, domain.RoleUser)
	cat := env.category(t, "Οδοποιία", "Roads")
	issue := env.issue(t, citizen, cat.ID, "Λακκούβα")

	_, err := env.photos.Upload(ctx, citizen, issue.ID, pngFiles(t, 2))
	require.NoError(t, err)
	require.NoError(t, env.issues.Delete(ctx, citizen, issue.ID))
	assert.Zero(t, countFiles(t, env.store.Root()))
}
