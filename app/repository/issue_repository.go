package repository

import (
	"context"

	"github.com/smartcity/civicdash/app/models"
	"gorm.io/gorm"
)

// issueRepository implements the IssueRepository interface
type issueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new issue repository instance
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db}
}

// Create inserts a new issue
func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

// GetByID retrieves an issue by its ID
func (r *issueRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateFields writes the given columns of one issue in a single UPDATE
func (r *issueRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows when values are unchanged, so confirm existence
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// List returns one page of issues matching filter, newest first, plus the total match count
func (r *issueRepository) List(ctx context.Context, filter IssueFilter, offset, limit int) ([]models.Issue, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Model(&models.Issue{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var issues []models.Issue
	err := r.filtered(ctx, filter).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&issues).Error
	if err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// CountByStatus groups the issues matching filter by status
func (r *issueRepository) CountByStatus(ctx context.Context, filter IssueFilter) (map[models.IssueStatus]int64, error) {
	var rows []struct {
		Status models.IssueStatus
		Total  int64
	}
	err := r.filtered(ctx, filter).Model(&models.Issue{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.IssueStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *issueRepository) filtered(ctx context.Context, filter IssueFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if filter.Department != "" {
		q = q.Where("assigned_department = ?", string(filter.Department))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		q = q.Where("category = ?", string(filter.Category))
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", string(filter.Priority))
	}
	if filter.ReportedBy != "" {
		q = q.Where("reported_by = ?", filter.ReportedBy)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	return q
}
