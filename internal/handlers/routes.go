package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Register mounts the API endpoints on router, normally the /api/v1 group.
func Register(router fiber.Router, upload *UploadHandler, search *SearchHandler, candidates *CandidateHandler) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	cv := router.Group("/cv")
	cv.Post("/upload", upload.HandleUpload)
	cv.Post("/upload/batch", upload.HandleBatchUpload)

	s := router.Group("/search")
	s.Post("/semantic", search.HandleSemanticSearch)
	s.Post("/filter", search.HandleFilter)
	s.Post("/filter/export", search.HandleFilterExport)
	s.Get("/skills", search.HandleSkills)
	s.Get("/locations", search.HandleLocations)

	cand := router.Group("/candidates")
	cand.Get("/", candidates.HandleList)
	cand.Get("/:id", candidates.HandleGet)
	cand.Put("/:id", candidates.HandleUpdate)
	cand.Delete("/:id", candidates.HandleDelete)
	cand.Get("/:id/similar", candidates.HandleSimilar)
}
