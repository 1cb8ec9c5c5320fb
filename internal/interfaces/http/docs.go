package http

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/docledger/pkg/logger"
)

// DocsConfig ubicación del swagger.json (salida de `swag init`) y ruta de la UI.
type DocsConfig struct {
	FilePath string
	Path     string
	Title    string
}

// MountDocs monta Swagger UI si el swagger.json existe; devuelve si quedó montada.
func MountDocs(app *fiber.App, cfg DocsConfig, log *logger.Logger) bool {
	if cfg.Path == "" {
		cfg.Path = "docs"
	}
	if _, err := os.Stat(cfg.FilePath); err != nil {
		log.Warn().Err(err).Str("file", cfg.FilePath).Msg("swagger.json no disponible, UI de documentación deshabilitada")
		return false
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: cfg.FilePath,
		Path:     cfg.Path,
		Title:    cfg.Title,
	}))
	return true
}
