package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smartcity/civicdash/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create inserts a new profile
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID retrieves a profile by its ID
func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail retrieves a profile by its (lower-cased) email address
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByIDs loads several profiles at once. Missing ids are silently absent from the result.
func (r *profileRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

// UpdateRole changes role and department in a single statement
func (r *profileRepository) UpdateRole(ctx context.Context, id, role, department string) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"role":       role,
		"department": department,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List retrieves a paginated list of profiles, newest first
func (r *profileRepository) List(ctx context.Context, offset, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&profiles).Error
	return profiles, err
}

// Count returns the total number of profiles
func (r *profileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&count).Error
	return count, err
}

// CountByRole returns the number of profiles per role
func (r *profileRepository) CountByRole(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}

// CountCreatedSince counts profiles registered at or after since
func (r *profileRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// Search matches full name or email, excluding one profile (usually the caller)
func (r *profileRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("(full_name LIKE ? OR email LIKE ?) AND id <> ?", pattern, pattern, excludeID).
		Order("full_name ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// ListOfficials returns the department officials of one department ordered by name
func (r *profileRepository) ListOfficials(ctx context.Context, department models.Department) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("role = ? AND department = ?", models.ROLE_OFFICIAL, string(department)).
		Order("full_name ASC").
		Find(&profiles).Error
	return profiles, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input literal inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
