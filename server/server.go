// Package server exposes a store over HTTP.
package server

import (
	"errors"

	"github.com/a-poor/cowdb/db"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server serves one store handle.
type Server struct {
	app        *fiber.App
	db         *db.DB
	log        *zap.Logger
	autoCommit bool
}

// New returns a server for d. With autoCommit, every successful
// mutation is committed before the response is sent.
func New(d *db.DB, log *zap.Logger, autoCommit bool) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			// Keys and values outlive the request until commit
			Immutable:             true,
			UnescapePath:          true,
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		db:         d,
		log:        log,
		autoCommit: autoCommit,
	}
	s.routes(s.app)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr), zap.Bool("autoCommit", s.autoCommit))
	return s.app.Listen(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, db.ErrClosed):
		code = fiber.StatusServiceUnavailable
	case errors.As(err, &fe):
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
