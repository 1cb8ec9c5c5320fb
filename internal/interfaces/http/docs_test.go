package http_test

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/docledger/internal/interfaces/http"
	"github.com/jhoicas/docledger/pkg/logger"
)

const minimalSwagger = `{"swagger":"2.0","info":{"title":"docledger API","version":"1.0"},"basePath":"/","paths":{}}`

func TestMountDocs_SinArchivoNoMonta(t *testing.T) {
	app := fiber.New()
	ok := apphttp.MountDocs(app, apphttp.DocsConfig{FilePath: filepath.Join(t.TempDir(), "swagger.json")}, logger.Nop())
	assert.False(t, ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/docs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMountDocs_SirveUI(t *testing.T) {
	file := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(file, []byte(minimalSwagger), 0o600))

	app := fiber.New()
	ok := apphttp.MountDocs(app, apphttp.DocsConfig{FilePath: file, Path: "docs", Title: "docledger API"}, logger.Nop())
	require.True(t, ok)
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/docs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
