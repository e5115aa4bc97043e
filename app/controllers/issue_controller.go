package controllers

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/issues"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// StatsSource answers the per-status counts. The issue service itself is
// one; a cache in front of it is another.
type StatsSource interface {
	Stats(ctx context.Context, filter repository.IssueFilter) (*models.StatusCounts, error)
}

// IssueController exposes issue reporting, triage and assignment
type IssueController struct {
	issues        *issues.Service
	stats         StatsSource
	maxImageBytes int64
}

// NewIssueController serves counts from stats, or from svc when stats is nil.
func NewIssueController(svc *issues.Service, stats StatsSource, maxImageBytes int64) *IssueController {
	if stats == nil {
		stats = svc
	}
	return &IssueController{issues: svc, stats: stats, maxImageBytes: maxImageBytes}
}

// HandleCreate accepts a JSON body, or a multipart form with an optional "image" file.
func (ic *IssueController) HandleCreate(c *fiber.Ctx) error {
	var in issues.CreateInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		parsed, err := ic.parseMultipart(c)
		if err != nil {
			return respondError(c, err)
		}
		in = *parsed
	} else if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	issue, err := ic.issues.Create(c.UserContext(), in, usercontext.GetUserContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"issue": issue})
}

func (ic *IssueController) parseMultipart(c *fiber.Ctx) (*issues.CreateInput, error) {
	in := &issues.CreateInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Priority:    c.FormValue("priority"),
		Address:     c.FormValue("address"),
		Department:  c.FormValue("department"),
	}
	for field, dst := range map[string]**float64{"latitude": &in.Latitude, "longitude": &in.Longitude} {
		raw := strings.TrimSpace(c.FormValue(field))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperror.Validation("%s must be a number", field)
		}
		*dst = &v
	}

	fh, err := c.FormFile("image")
	if err != nil {
		// No file part: a report without a photo.
		return in, nil
	}
	if ic.maxImageBytes > 0 && fh.Size > ic.maxImageBytes {
		return nil, apperror.Validation("image is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperror.Validation("could not read image")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperror.Validation("could not read image")
	}
	in.Image = &issues.ImageUpload{Filename: fh.Filename, Data: data}
	return in, nil
}

// HandleList lists issues. mine=true limits the list to the caller's reports.
func (ic *IssueController) HandleList(c *fiber.Ctx) error {
	filter, err := issueFilterFromQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := ic.issues.List(c.UserContext(), filter, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (ic *IssueController) HandleStats(c *fiber.Ctx) error {
	filter, err := issueFilterFromQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := ic.stats.Stats(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// HandleAssigned lists the issues assigned to the caller.
func (ic *IssueController) HandleAssigned(c *fiber.Ctx) error {
	filter := repository.IssueFilter{AssignedTo: usercontext.GetUserID(c)}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			return respondError(c, apperror.Validation("unknown status %q", raw))
		}
		filter.Status = status
	}
	page, err := ic.issues.List(c.UserContext(), filter, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (ic *IssueController) HandleGet(c *fiber.Ctx) error {
	issue, err := ic.issues.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"issue": issue})
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus moves an issue along its lifecycle.
func (ic *IssueController) HandleUpdateStatus(c *fiber.Ctx) error {
	var in statusRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	issue, err := ic.issues.Transition(c.UserContext(), c.Params("id"), in.Status, usercontext.GetUserContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"issue": issue})
}

func (ic *IssueController) HandleAssign(c *fiber.Ctx) error {
	worker := strings.TrimSpace(c.Query("worker"))
	if worker == "" {
		return badRequest(c, "worker is required")
	}
	issue, err := ic.issues.Assign(c.UserContext(), c.Params("id"), worker, usercontext.GetUserContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"issue": issue})
}

func (ic *IssueController) HandleAssignSelf(c *fiber.Ctx) error {
	issue, err := ic.issues.AssignToSelf(c.UserContext(), c.Params("id"), usercontext.GetUserContext(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"issue": issue})
}

func (ic *IssueController) HandleWorkers(c *fiber.Ctx) error {
	workers, err := ic.issues.ListWorkersByDepartment(c.UserContext(), c.Params("department"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]fiber.Map, 0, len(workers))
	for _, w := range workers {
		out = append(out, fiber.Map{
			"id":         w.ID,
			"full_name":  w.FullName,
			"email":      w.Email,
			"avatar_url": w.AvatarURL,
			"department": w.Department,
		})
	}
	return c.JSON(fiber.Map{"workers": out})
}

// HandleDepartments returns the department and category catalogue.
func (ic *IssueController) HandleDepartments(c *fiber.Ctx) error {
	categories := make([]fiber.Map, 0, len(models.AllCategories))
	for _, cat := range models.AllCategories {
		categories = append(categories, fiber.Map{
			"category":   cat,
			"department": cat.DefaultDepartment(),
		})
	}
	return c.JSON(fiber.Map{
		"departments": models.AllDepartments,
		"categories":  categories,
		"statuses":    models.AllStatuses,
	})
}

func issueFilterFromQuery(c *fiber.Ctx) (repository.IssueFilter, error) {
	var f repository.IssueFilter

	if raw := c.Query("department"); raw != "" {
		d := models.Department(strings.ToLower(strings.TrimSpace(raw)))
		if !d.IsValid() {
			return f, apperror.Validation("unknown department %q", raw)
		}
		f.Department = d
	}
	if raw := c.Query("status"); raw != "" {
		s, ok := models.ParseStatus(raw)
		if !ok {
			return f, apperror.Validation("unknown status %q", raw)
		}
		f.Status = s
	}
	if raw := c.Query("category"); raw != "" {
		cat, ok := models.ParseCategory(raw)
		if !ok {
			return f, apperror.Validation("unknown category %q", raw)
		}
		f.Category = cat
	}
	if raw := c.Query("priority"); raw != "" {
		p, ok := models.ParsePriority(raw)
		if !ok {
			return f, apperror.Validation("unknown priority %q", raw)
		}
		f.Priority = p
	}
	f.ReportedBy = c.Query("reported_by")
	f.AssignedTo = c.Query("assigned_to")
	if c.QueryBool("mine") {
		f.ReportedBy = usercontext.GetUserID(c)
	}
	return f, nil
}
