package models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_CITIZEN  = "citizen"
	ROLE_OFFICIAL = "department_official"
	ROLE_ADMIN    = "admin"
)

var (
	ErrDepartmentRequired  = errors.New("department is required for department officials")
	ErrDepartmentForbidden = errors.New("only department officials belong to a department")
	ErrUnknownDepartment   = errors.New("unknown department")
	ErrUnknownRole         = errors.New("role must be citizen, department_official or admin")
)

func IsValidRole(role string) bool {
	switch role {
	case ROLE_CITIZEN, ROLE_OFFICIAL, ROLE_ADMIN:
		return true
	}
	return false
}

// Profile is an account of the dashboard. Officials are scoped to exactly one department.
type Profile struct {
	ID         string    `gorm:"primaryKey;type:char(36)" json:"id"`
	FullName   string    `gorm:"type:varchar(150);index" json:"full_name" validate:"required,min=2,max=150"`
	Email      string    `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Password   string    `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	Role       string    `gorm:"type:varchar(32);default:'citizen';index" json:"role" validate:"required,oneof=citizen department_official admin"`
	Department string    `gorm:"type:varchar(64);index" json:"department,omitempty"`
	Phone      string    `gorm:"type:varchar(32)" json:"phone,omitempty" validate:"max=32"`
	AvatarURL  string    `gorm:"type:varchar(512)" json:"avatar_url,omitempty" validate:"max=512"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublicProfile is the subset of a profile shown to other users.
type PublicProfile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NewID returns a time-ordered identifier, so lexical order follows creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

func (p *Profile) Validate() error {
	v := validator.New()
	if err := v.Struct(p); err != nil {
		return err
	}
	return ValidateRoleDepartment(p.Role, p.Department)
}

// ValidateRoleDepartment rejects unknown roles and enforces that officials carry
// a known department and nobody else does.
func ValidateRoleDepartment(role, department string) error {
	if !IsValidRole(role) {
		return ErrUnknownRole
	}
	if role == ROLE_OFFICIAL {
		if department == "" {
			return ErrDepartmentRequired
		}
		if !Department(department).IsValid() {
			return ErrUnknownDepartment
		}
		return nil
	}
	if department != "" {
		return ErrDepartmentForbidden
	}
	return nil
}

func NewProfile(fullName, email, password, role, department string) (*Profile, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:         NewID(),
		FullName:   strings.TrimSpace(fullName),
		Email:      NormalizeEmail(email),
		Password:   pw,
		Role:       role,
		Department: department,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Profile) IsAdmin() bool {
	return p.Role == ROLE_ADMIN
}

func (p *Profile) IsOfficial() bool {
	return p.Role == ROLE_OFFICIAL
}

// Public strips everything except what a chat partner may see.
func (p *Profile) Public() PublicProfile {
	return PublicProfile{ID: p.ID, FullName: p.FullName, AvatarURL: p.AvatarURL}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (p *Profile) CheckPassword(password string) bool {
	if p.Password == "" {
		return false
	}
	return CheckPasswordHash(password, p.Password)
}

func (p *Profile) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	p.Password = hashedPassword
	return nil
}
