package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

// queryInt reads an integer query parameter. A missing parameter yields def;
// a malformed one is a validation error.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &services.ValidationError{Field: key, Message: "must be an integer"}
	}
	return v, nil
}

func parsePage(c *fiber.Ctx) (services.Page, error) {
	limit, err := queryInt(c, "limit", services.DefaultPageLimit)
	if err != nil {
		return services.Page{}, err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return services.Page{}, err
	}
	page := services.Page{Limit: limit, Offset: offset}
	return page, page.Validate()
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &services.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return uint(id), nil
}

// parseBody decodes a JSON body into dst. An empty body leaves dst untouched.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return &services.ValidationError{Field: "body", Message: "invalid request payload"}
	}
	return nil
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
