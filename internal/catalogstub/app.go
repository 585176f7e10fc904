package catalogstub

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
)

// StatusHeader makes the stub answer with the given status code and an
// error body, for exercising client error handling.
const StatusHeader = "X-Stub-Status"

type Fixtures struct {
	Books     []remote.BookItem
	Countries remote.CountryResponse
	IP        remote.IPInfo
}

// New returns a fiber app that stands in for the catalog, country and IP
// lookup upstreams.
func New(f Fixtures, l *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(func(c *fiber.Ctx) error {
		l.Debugw("Stub request.", "method", c.Method(), "path", c.Path())

		raw := c.Get(StatusHeader)
		if raw == "" {
			return c.Next()
		}
		code, err := strconv.Atoi(raw)
		if err != nil || code < 100 || code > 599 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+StatusHeader)
		}
		return c.Status(code).JSON(fiber.Map{"message": "stubbed failure"})
	})

	app.Get("/books", func(c *fiber.Ctx) error {
		return c.JSON(f.Books)
	})
	app.Get("/countries", func(c *fiber.Ctx) error {
		return c.JSON(f.Countries)
	})
	app.Get("/ip", func(c *fiber.Ctx) error {
		return c.JSON(f.IP)
	})

	return app
}
