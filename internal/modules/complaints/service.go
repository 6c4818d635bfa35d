// Package complaints handles support tickets and the support contact links.
package complaints

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/events"
)

const (
	moduleName = "complaints"

	maxSubjectLength = 200
	maxMessageLength = 5000
)

// UserDirectory resolves the user snapshot stored on each complaint
type UserDirectory interface {
	User(ctx context.Context, userID string) (*domain.User, error)
}

// SupportLinks are the contact channels shown to customers
type SupportLinks struct {
	WhatsApp string `json:"whatsapp"`
	Telegram string `json:"telegram"`
	Email    string `json:"email"`
}

// DefaultSupportLinks are the published support channels
var DefaultSupportLinks = SupportLinks{
	WhatsApp: "https://wa.me/2348012345678",
	Telegram: "https://t.me/flexinvest_support",
	Email:    "support@flexinvest.com",
}

// Service implements complaint operations
type Service struct {
	repo    *Repository
	users   UserDirectory
	emitter events.Emitter
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a complaint service
func NewService(repo *Repository, users UserDirectory, emitter events.Emitter, log zerolog.Logger) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{
		repo:    repo,
		users:   users,
		emitter: emitter,
		now:     time.Now,
		log:     log.With().Str("service", "complaints").Logger(),
	}
}

// SupportLinks returns the support contact channels
func (s *Service) SupportLinks() SupportLinks {
	return DefaultSupportLinks
}

// Create opens a complaint for userID
func (s *Service) Create(ctx context.Context, userID, subject, message string) (*domain.Complaint, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)
	switch {
	case subject == "" || message == "":
		return nil, fmt.Errorf("%w: subject and message are required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(subject) > maxSubjectLength:
		return nil, fmt.Errorf("%w: subject is too long", domain.ErrInvalidInput)
	case utf8.RuneCountInString(message) > maxMessageLength:
		return nil, fmt.Errorf("%w: message is too long", domain.ErrInvalidInput)
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	complaint := &domain.Complaint{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserEmail: user.Email,
		UserName:  user.FullName,
		Subject:   subject,
		Message:   message,
		Status:    domain.ComplaintOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, complaint); err != nil {
		return nil, err
	}

	s.log.Info().Str("complaint_id", complaint.ID).Str("user_id", userID).Msg("Complaint opened")

	s.emitter.EmitTyped(events.ComplaintCreated, moduleName, &events.ComplaintCreatedData{
		UserID:      userID,
		ComplaintID: complaint.ID,
		Subject:     subject,
	})

	return complaint, nil
}

// History returns the user's complaints, newest first
func (s *Service) History(ctx context.Context, userID string) ([]domain.Complaint, error) {
	return s.repo.ListByUser(ctx, userID)
}

// List returns complaints filtered by status; empty status returns all
func (s *Service) List(ctx context.Context, status domain.ComplaintStatus) ([]domain.Complaint, error) {
	if status != "" && !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.ListByStatus(ctx, status)
}

// Respond sets the complaint status and the admin response
func (s *Service) Respond(ctx context.Context, id string, status domain.ComplaintStatus, response string) (*domain.Complaint, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	response = strings.TrimSpace(response)
	if err := s.repo.Update(ctx, id, status, response, s.now().UTC()); err != nil {
		return nil, err
	}

	complaint, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("complaint_id", id).Str("status", string(status)).Msg("Complaint updated")

	s.emitter.EmitTyped(events.ComplaintUpdated, moduleName, &events.ComplaintUpdatedData{
		UserID:      complaint.UserID,
		ComplaintID: complaint.ID,
		Subject:     complaint.Subject,
		Status:      string(status),
		Response:    response,
	})

	return complaint, nil
}
