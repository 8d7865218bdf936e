package server

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (s *Server) routes(router fiber.Router) {
	router.Get("/len", s.handleLen)
	router.Get("/stats", s.handleStats)
	router.Post("/commit", s.handleCommit)

	keys := router.Group("/keys")
	keys.Get("/", s.handleList)
	keys.Get("/:key", s.handleGet)
	keys.Put("/:key", s.handleSet)
	keys.Delete("/:key", s.handleDelete)
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	v, err := s.db.Get(c.Params("key"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(v)
}

func (s *Server) handleSet(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := s.db.Set(key, c.Body()); err != nil {
		return err
	}
	if err := s.maybeCommit(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "set", "key": key})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := s.db.Delete(key); err != nil {
		return err
	}
	if err := s.maybeCommit(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "deleted", "key": key})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	keys := []string{}
	err := s.db.Scan(func(k string, _ []byte) (bool, error) {
		keys = append(keys, k)
		return limit > 0 && len(keys) >= limit, nil
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"keys": keys})
}

func (s *Server) handleLen(c *fiber.Ctx) error {
	n, err := s.db.Len()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"len": n})
}

func (s *Server) handleCommit(c *fiber.Ctx) error {
	if err := s.db.Commit(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "committed"})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	st, err := s.db.Stats()
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) maybeCommit() error {
	if !s.autoCommit {
		return nil
	}
	if err := s.db.Commit(); err != nil {
		s.log.Error("auto commit failed", zap.Error(err))
		return err
	}
	return nil
}
