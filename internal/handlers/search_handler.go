package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
	"github.com/NaguKun/Analyseur-de-CV/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SearchHandler struct {
	search services.SearchService
}

func NewSearchHandler(search services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// HandleSemanticSearch godoc
// @Summary      Semantic candidate search
// @Description  Ranks candidates matching the optional filters by similarity to a free-text query.
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        request  body   models.SemanticSearchRequest  true  "Query and filters"
// @Param        limit    query  int  false  "Page size (1-100)"  default(10)
// @Param        offset   query  int  false  "Page offset"        default(0)
// @Success      200  {array}   models.RankedCandidate
// @Failure      400  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Router       /search/semantic [post]
func (h *SearchHandler) HandleSemanticSearch(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return err
	}

	var req models.SemanticSearchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	criteria := services.Criteria{
		Location:           req.Location,
		EducationLevel:     req.EducationLevel,
		Skills:             req.RequiredSkills,
		MinExperienceYears: req.MinExperienceYears,
	}
	results, err := h.search.SemanticSearch(c.UserContext(), req.Query, criteria, page)
	if err != nil {
		return err
	}

	return c.JSON(nonNil(results))
}

// HandleFilter godoc
// @Summary      Structured candidate filter
// @Description  Returns candidates satisfying every given filter, ordered by id.
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        request  body   models.FilterRequest  false  "Filters"
// @Param        limit    query  int  false  "Page size (1-100)"  default(10)
// @Param        offset   query  int  false  "Page offset"        default(0)
// @Success      200  {array}   models.Candidate
// @Failure      400  {object}  map[string]interface{}
// @Router       /search/filter [post]
func (h *SearchHandler) HandleFilter(c *fiber.Ctx) error {
	candidates, err := h.filter(c)
	if err != nil {
		return err
	}

	return c.JSON(nonNil(candidates))
}

// HandleFilterExport godoc
// @Summary      Export filtered candidates
// @Description  Same filters as /search/filter, returned as an Excel workbook.
// @Tags         search
// @Accept       json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        request  body   models.FilterRequest  false  "Filters"
// @Param        limit    query  int  false  "Page size (1-100)"  default(10)
// @Param        offset   query  int  false  "Page offset"        default(0)
// @Success      200  {file}  file
// @Failure      400  {object}  map[string]interface{}
// @Router       /search/filter/export [post]
func (h *SearchHandler) HandleFilterExport(c *fiber.Ctx) error {
	candidates, err := h.filter(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := services.ExportCandidates(&buf, candidates, time.Now()); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="candidates.xlsx"`)
	return c.Send(buf.Bytes())
}

func (h *SearchHandler) filter(c *fiber.Ctx) ([]models.Candidate, error) {
	page, err := parsePage(c)
	if err != nil {
		return nil, err
	}

	var req models.FilterRequest
	if err := parseBody(c, &req); err != nil {
		return nil, err
	}

	criteria := services.Criteria{
		Location:           req.Location,
		EducationLevel:     req.EducationLevel,
		Skills:             req.Skills,
		MinExperienceYears: req.MinExperienceYears,
	}
	return h.search.FilterCandidates(c.UserContext(), criteria, page)
}

// HandleSkills godoc
// @Summary      List skills
// @Tags         search
// @Produce      json
// @Param        limit  query  int  false  "Maximum number of names (1-1000)"  default(100)
// @Success      200  {array}   string
// @Failure      400  {object}  map[string]interface{}
// @Router       /search/skills [get]
func (h *SearchHandler) HandleSkills(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", services.DefaultListingLimit)
	if err != nil {
		return err
	}

	skills, err := h.search.Skills(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return c.JSON(nonNil(skills))
}

// HandleLocations godoc
// @Summary      List locations
// @Tags         search
// @Produce      json
// @Param        limit  query  int  false  "Maximum number of locations (1-1000)"  default(100)
// @Success      200  {array}   string
// @Failure      400  {object}  map[string]interface{}
// @Router       /search/locations [get]
func (h *SearchHandler) HandleLocations(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", services.DefaultListingLimit)
	if err != nil {
		return err
	}

	locations, err := h.search.Locations(c.UserContext(), limit)
	if err != nil {
		return err
	}

	return c.JSON(nonNil(locations))
}
