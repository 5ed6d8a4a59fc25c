package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AccountService owns sign-up, sign-in and the session token.
type AccountService struct {
	profiles repository.Profiles
	audit    *AuditService
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAccountService(profiles repository.Profiles, audit *AuditService, secret []byte, ttl time.Duration) *AccountService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AccountService{profiles: profiles, audit: audit, secret: secret, ttl: ttl, now: time.Now}
}

type RegisterInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Phone    *string     `json:"phone"`
	Role     models.Role `json:"role"`

	Specialization string  `json:"specialization"`
	LicenseNumber  *string `json:"license_number"`

	DateOfBirth         *time.Time `json:"date_of_birth"`
	MedicalRecordNumber *string    `json:"medical_record_number"`
	EmergencyContact    *string    `json:"emergency_contact"`
}

func (in *RegisterInput) normalize() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Specialization = strings.TrimSpace(in.Specialization)
	switch {
	case in.Email == "":
		return errs.Required("email")
	case in.FullName == "":
		return errs.Required("full_name")
	case len(in.Password) < minPasswordLength:
		return errs.Invalid("password", "must be at least %d characters", minPasswordLength)
	case !in.Role.Valid():
		return errs.Invalid("role", "unknown role %q", in.Role)
	case in.Role == models.RoleDoctor && in.Specialization == "":
		return errs.Required("specialization")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return errs.Invalid("email", "not a valid address")
	}
	return nil
}

// Register creates a profile and its role row. Admin accounts cannot be
// self-registered; use CreateAdmin.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.Role == models.RoleAdmin {
		return nil, errs.Invalid("role", "admin accounts cannot be self-registered")
	}
	return s.create(ctx, in)
}

// CreateAdmin provisions an administrator from the command line.
func (s *AccountService) CreateAdmin(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	in := RegisterInput{Email: email, Password: password, FullName: fullName, Role: models.RoleAdmin}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

func (s *AccountService) create(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	if _, err := s.profiles.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", in.Email, errs.ErrConflict)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &models.Profile{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		PasswordHash: string(hash),
	}
	acct := repository.Account{Profile: p}
	switch in.Role {
	case models.RoleDoctor:
		acct.Doctor = &models.Doctor{
			Specialization: in.Specialization,
			LicenseNumber:  in.LicenseNumber,
		}
	case models.RolePatient:
		mrn := in.MedicalRecordNumber
		if mrn == nil || strings.TrimSpace(*mrn) == "" {
			generated := utils.GenerateMRN()
			mrn = &generated
		}
		acct.Patient = &models.Patient{
			DateOfBirth:         in.DateOfBirth,
			MedicalRecordNumber: mrn,
			EmergencyContact:    in.EmergencyContact,
		}
	}
	if err := s.profiles.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}

	s.audit.recordQuietly(ctx, AuditEntry{
		UserID:  p.ID,
		Action:  ActionRegister,
		Details: map[string]interface{}{"role": p.Role},
	})
	return p, nil
}

type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *models.Profile `json:"user"`
}

// Login checks the credentials and issues a signed session token. Unknown
// email and wrong password fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password, ip, userAgent string) (*Session, error) {
	p, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrAuthenticationRequired
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, errs.ErrAuthenticationRequired
	}

	token, expires, err := s.IssueToken(p)
	if err != nil {
		return nil, err
	}
	s.audit.recordQuietly(ctx, AuditEntry{
		UserID:    p.ID,
		Action:    ActionLogin,
		IPAddress: ip,
		UserAgent: userAgent,
	})
	return &Session{Token: token, ExpiresAt: expires, User: p}, nil
}

// IssueToken signs an HS256 token carrying the profile id and role.
func (s *AccountService) IssueToken(p *models.Profile) (string, time.Time, error) {
	expires := s.now().Add(s.ttl)
	claims := jwt.MapClaims{
		"id":    p.ID,
		"email": p.Email,
		"role":  string(p.Role),
		"exp":   expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// CurrentUser resolves the session's profile.
func (s *AccountService) CurrentUser(ctx context.Context, actor Actor) (*models.Profile, error) {
	if actor.ID == "" {
		return nil, errs.ErrAuthenticationRequired
	}
	p, err := s.profiles.GetByID(ctx, actor.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrAuthenticationRequired
	}
	return p, err
}

func (s *AccountService) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	return s.profiles.ListDoctors(ctx)
}
