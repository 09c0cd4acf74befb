package controllers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/elvish-ishaan/dotformer/app/controllers"
	"github.com/elvish-ishaan/dotformer/app/models"
	"github.com/elvish-ishaan/dotformer/app/repository"
	"github.com/elvish-ishaan/dotformer/internal/pkg/usercontext"
)

type fakeAssetRepo struct {
	assets []models.Asset
}

func (f *fakeAssetRepo) Create(asset *models.Asset) error {
	f.assets = append(f.assets, *asset)
	return nil
}

func (f *fakeAssetRepo) GetByID(id uint) (*models.Asset, error) {
	for i := range f.assets {
		if f.assets[i].ID == id {
			return &f.assets[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssetRepo) GetByUUID(uuid string) (*models.Asset, error) {
	for i := range f.assets {
		if f.assets[i].UUID == uuid {
			return &f.assets[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAssetRepo) GetByUserID(userID uint, offset, limit int) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.assets {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssetRepo) Update(asset *models.Asset) error { return nil }

func (f *fakeAssetRepo) Delete(id uint) error { return nil }

func (f *fakeAssetRepo) CountByUserID(userID uint) (int64, error) {
	var count int64
	for _, a := range f.assets {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAssetRepo) SumSizeByUserID(userID uint) (int64, error) {
	var total int64
	for _, a := range f.assets {
		if a.UserID == userID {
			total += a.FileSize
		}
	}
	return total, nil
}

func newFileApp(repo repository.AssetRepository, userID uint) *fiber.App {
	fc := controllers.NewFileController(nil, nil, repo)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			Username:   "tester",
			IsLoggedIn: true,
		})
		return c.Next()
	})
	app.Get("/files", fc.ListFiles)
	app.Get("/files/:id", fc.GetFile)
	return app
}

func TestListFilesReportsStorageBytes(t *testing.T) {
	repo := &fakeAssetRepo{assets: []models.Asset{
		{ID: 1, UUID: "a", UserID: 42, FileName: "a.png", FileSize: 1000},
		{ID: 2, UUID: "b", UserID: 42, FileName: "b.jpg", FileSize: 2048},
		{ID: 3, UUID: "c", UserID: 7, FileName: "other.png", FileSize: 512},
	}}
	app := newFileApp(repo, 42)

	resp, err := app.Test(httptest.NewRequest("GET", "/files", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Files        []models.Asset `json:"files"`
		Total        int64          `json:"total"`
		StorageBytes int64          `json:"storage_bytes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Files, 2)
	assert.Equal(t, int64(2), body.Total)
	assert.Equal(t, int64(3048), body.StorageBytes, "only the requesting user's bytes are summed")
}

func TestGetFileUnknownUUID(t *testing.T) {
	app := newFileApp(&fakeAssetRepo{}, 42)

	resp, err := app.Test(httptest.NewRequest("GET", "/files/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
