package issues

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
)

// ImageUpload is a photo attached to a multipart create request.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// CreateInput is decoded once by the HTTP layer from either a JSON or a
// multipart body. Image is nil for JSON bodies.
type CreateInput struct {
	Title       string       `json:"title" validate:"required,max=200"`
	Description string       `json:"description" validate:"required,max=5000"`
	Category    string       `json:"category" validate:"required"`
	Priority    string       `json:"priority"`
	Address     string       `json:"address" validate:"max=255"`
	Department  string       `json:"department"`
	Latitude    *float64     `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64     `json:"longitude" validate:"omitempty,longitude"`
	Image       *ImageUpload `json:"-"`
}

var validate = validator.New()

// normalized is a CreateInput after every field has been checked.
type normalized struct {
	title       string
	description string
	category    models.Category
	priority    models.Priority
	department  models.Department
	address     string
	latitude    *float64
	longitude   *float64
}

func (in CreateInput) normalize() (*normalized, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)

	if err := validate.Struct(in); err != nil {
		return nil, apperror.Validation("%s", validationMessage(err))
	}

	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, apperror.Validation("unknown category %q", in.Category)
	}
	priority, ok := models.ParsePriority(in.Priority)
	if !ok {
		return nil, apperror.Validation("priority must be low, medium or high")
	}

	department := category.DefaultDepartment()
	if d := strings.TrimSpace(in.Department); d != "" {
		department = models.Department(strings.ToLower(d))
		if !department.IsValid() {
			return nil, apperror.Validation("unknown department %q", in.Department)
		}
	}

	n := &normalized{
		title:       in.Title,
		description: in.Description,
		category:    category,
		priority:    priority,
		department:  department,
		address:     in.Address,
	}

	switch {
	case in.Latitude != nil && in.Longitude != nil:
		n.latitude, n.longitude = in.Latitude, in.Longitude
	case in.Latitude != nil || in.Longitude != nil:
		return nil, apperror.Validation("latitude and longitude must be given together")
	default:
		if lat, lng, ok := models.ParseCoordinates(in.Address); ok {
			n.latitude, n.longitude = &lat, &lng
		}
	}

	return n, nil
}

// validationMessage turns the first validator failure into a sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "latitude", "longitude":
		return field + " is out of range"
	default:
		return field + " is invalid"
	}
}
