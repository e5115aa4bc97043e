package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusAssigned   IssueStatus = "assigned"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
)

// AllStatuses lists the lifecycle in order.
var AllStatuses = []IssueStatus{StatusPending, StatusAssigned, StatusInProgress, StatusResolved}

// ParseStatus accepts the canonical names plus the legacy "open" and "closed".
func ParseStatus(raw string) (IssueStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	switch s {
	case "open":
		return StatusPending, true
	case "closed":
		return StatusResolved, true
	}
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Next returns the only status reachable from s, or "" for the terminal state.
func (s IssueStatus) Next() IssueStatus {
	switch s {
	case StatusPending:
		return StatusAssigned
	case StatusAssigned:
		return StatusInProgress
	case StatusInProgress:
		return StatusResolved
	default:
		return ""
	}
}

func CanTransition(from, to IssueStatus) bool {
	next := from.Next()
	return next != "" && next == to
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(raw string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PriorityMedium, true
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	default:
		return "", false
	}
}

type Department string

const (
	DeptPublicWorks   Department = "public_works"
	DeptTransport     Department = "transport"
	DeptPublicHealth  Department = "public_health"
	DeptUtilities     Department = "utilities"
	DeptSanitation    Department = "sanitation"
	DeptParks         Department = "parks_and_recreation"
	DeptUrbanPlanning Department = "urban_planning"
)

var AllDepartments = []Department{
	DeptPublicWorks, DeptTransport, DeptPublicHealth, DeptUtilities,
	DeptSanitation, DeptParks, DeptUrbanPlanning,
}

func (d Department) IsValid() bool {
	for _, known := range AllDepartments {
		if d == known {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryPothole     Category = "pothole"
	CategoryStreetlight Category = "streetlight"
	CategorySanitation  Category = "sanitation"
	CategoryGraffiti    Category = "graffiti"
	CategoryTraffic     Category = "traffic"
	CategoryWater       Category = "water"
	CategoryGeneral     Category = "general"
)

// categoryDepartments routes each category to the department that owns it by default.
// Department names are also accepted as categories and route to themselves.
var categoryDepartments = map[Category]Department{
	CategoryPothole:     DeptPublicWorks,
	CategoryStreetlight: DeptUtilities,
	CategorySanitation:  DeptSanitation,
	CategoryGraffiti:    DeptPublicWorks,
	CategoryTraffic:     DeptTransport,
	CategoryWater:       DeptUtilities,
	CategoryGeneral:     DeptPublicWorks,
}

var AllCategories = []Category{
	CategoryPothole, CategoryStreetlight, CategorySanitation, CategoryGraffiti,
	CategoryTraffic, CategoryWater, CategoryGeneral,
	Category(DeptTransport), Category(DeptPublicHealth), Category(DeptUtilities),
	Category(DeptParks), Category(DeptUrbanPlanning),
}

func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := categoryDepartments[c]; ok {
		return c, true
	}
	if Department(c).IsValid() {
		return c, true
	}
	return "", false
}

// DefaultDepartment returns the department that handles c when the reporter named none.
func (c Category) DefaultDepartment() Department {
	if d, ok := categoryDepartments[c]; ok {
		return d
	}
	if Department(c).IsValid() {
		return Department(c)
	}
	return DeptPublicWorks
}

type Issue struct {
	ID                 string      `gorm:"primaryKey;type:char(36)" json:"id"`
	Title              string      `gorm:"type:varchar(200)" json:"title"`
	Description        string      `gorm:"type:text" json:"description"`
	Category           Category    `gorm:"type:varchar(32);index" json:"category"`
	Priority           Priority    `gorm:"type:varchar(16);index" json:"priority"`
	Status             IssueStatus `gorm:"type:varchar(16);index" json:"status"`
	Address            string      `gorm:"type:varchar(255)" json:"address,omitempty"`
	Latitude           *float64    `json:"latitude,omitempty"`
	Longitude          *float64    `json:"longitude,omitempty"`
	ImageURL           string      `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	ImageKey           string      `gorm:"type:varchar(255)" json:"-"`
	ReportedBy         string      `gorm:"type:char(36);index" json:"reported_by"`
	AssignedTo         *string     `gorm:"type:char(36);index" json:"assigned_to"`
	AssignedDepartment Department  `gorm:"type:varchar(64);index" json:"assigned_department"`
	CreatedAt          time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	ResolvedAt         *time.Time  `json:"resolved_at"`
}

func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}

func (i *Issue) IsAssignedTo(profileID string) bool {
	return i.AssignedTo != nil && *i.AssignedTo == profileID
}

// StatusCounts is the per-status breakdown shown on the dashboard.
type StatusCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Assigned   int64 `json:"assigned"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
}

func (s *StatusCounts) Add(status IssueStatus, n int64) {
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusAssigned:
		s.Assigned += n
	case StatusInProgress:
		s.InProgress += n
	case StatusResolved:
		s.Resolved += n
	}
	s.Total += n
}

// ParseCoordinates reads a "lat,lng" pair. Anything else is treated as a plain address.
func ParseCoordinates(address string) (lat, lng float64, ok bool) {
	parts := strings.Split(address, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}
