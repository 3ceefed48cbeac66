package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

type CandidateHandler struct {
	candidates services.CandidateService
}

func NewCandidateHandler(candidates services.CandidateService) *CandidateHandler {
	return &CandidateHandler{candidates: candidates}
}

// HandleList godoc
// @Summary      List candidates
// @Tags         candidates
// @Produce      json
// @Param        limit   query  int  false  "Page size (1-100)"  default(10)
// @Param        offset  query  int  false  "Page offset"        default(0)
// @Success      200  {array}   models.Candidate
// @Failure      400  {object}  map[string]interface{}
// @Router       /candidates [get]
func (h *CandidateHandler) HandleList(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	candidates, err := h.candidates.List(c.UserContext(), page)
	if err != nil {
		return err
	}

	return c.JSON(nonNil(candidates))
}

// HandleGet godoc
// @Summary      Get a candidate
// @Tags         candidates
// @Produce      json
// @Param        id  path  int  true  "Candidate ID"
// @Success      200  {object}  models.Candidate
// @Failure      404  {object}  map[string]interface{}
// @Router       /candidates/{id} [get]
func (h *CandidateHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	candidate, err := h.candidates.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(candidate)
}

// HandleUpdate godoc
// @Summary      Replace a candidate's data
// @Description  Replaces the profile and all child records, then recomputes the embeddings.
// @Tags         candidates
// @Accept       json
// @Produce      json
// @Param        id       path  int                    true  "Candidate ID"
// @Param        request  body  models.CandidateInput  true  "Candidate data"
// @Success      200  {object}  models.Candidate
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /candidates/{id} [put]
func (h *CandidateHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var in models.CandidateInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request payload",
			"code":  fiber.StatusBadRequest,
		})
	}

	candidate, err := h.candidates.Update(c.UserContext(), id, &in)
	if err != nil {
		return err
	}

	return c.JSON(candidate)
}

// HandleDelete godoc
// @Summary      Delete a candidate
// @Tags         candidates
// @Param        id  path  int  true  "Candidate ID"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /candidates/{id} [delete]
func (h *CandidateHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.candidates.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSimilar godoc
// @Summary      Find similar candidates
// @Description  Nearest neighbours of a candidate in the vector index.
// @Tags         candidates
// @Produce      json
// @Param        id     path   int  true   "Candidate ID"
// @Param        limit  query  int  false  "Number of results (1-100)"  default(10)
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /candidates/{id}/similar [get]
func (h *CandidateHandler) HandleSimilar(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", services.DefaultPageLimit)
	if err != nil {
		return err
	}

	similar, err := h.candidates.Similar(c.UserContext(), id, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"candidate_id": id,
		"similar":      similar,
	})
}
