// Package accounts handles registration, login, profiles and bank accounts.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/ledger"
)

// LedgerStore is the wallet surface used by accounts
type LedgerStore interface {
	Atomically(ctx context.Context, ownerID string, fn func(tx ledger.Tx) error) error
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
}

// TokenIssuer signs access tokens
type TokenIssuer interface {
	Issue(p auth.Principal) (*auth.Token, error)
}

// RegisterInput is a new customer sign-up
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// BankAccountInput is the payout account a customer saves
type BankAccountInput struct {
	BankName      string `json:"bank_name" validate:"required,max=120"`
	AccountNumber string `json:"account_number" validate:"required,numeric,len=10"`
	AccountName   string `json:"account_name" validate:"required,max=120"`
}

// Session is the result of a successful login
type Session struct {
	Token *auth.Token   `json:"token"`
	User  *domain.User  `json:"user,omitempty"`
	Admin *domain.Admin `json:"admin,omitempty"`
}

// Profile is a user with their wallet balance and bank account
type Profile struct {
	User        *domain.User        `json:"user"`
	Balance     decimal.Decimal     `json:"balance"`
	BankAccount *domain.BankAccount `json:"bank_account,omitempty"`
}

// Service implements account operations
type Service struct {
	repo     *Repository
	store    LedgerStore
	tokens   TokenIssuer
	validate *validator.Validate
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates an accounts service.
//
// Parameters:
//   - repo: Accounts repository
//   - store: Ledger store, used to open the wallet together with the user
//   - tokens: Access token issuer
//   - log: Structured logger
func NewService(repo *Repository, store LedgerStore, tokens TokenIssuer, log zerolog.Logger) *Service {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	return &Service{
		repo:     repo,
		store:    store,
		tokens:   tokens,
		validate: validate,
		now:      time.Now,
		log:      log.With().Str("service", "accounts").Logger(),
	}
}

// Register creates a user and a zero-balance wallet in one transaction
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	phone, err := NormalizePhone(strings.TrimSpace(in.Phone), DefaultRegion)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        phone,
		CreatedAt:    s.now().UTC(),
	}

	err = s.store.Atomically(ctx, "", func(tx ledger.Tx) error {
		taken, err := s.repo.EmailTaken(ctx, tx.Querier(), user.Email)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrEmailTaken
		}
		if err := s.repo.CreateUser(ctx, tx.Querier(), user); err != nil {
			return err
		}
		_, err = tx.CreateWallet(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	return user, nil
}

// Authenticate checks customer credentials and issues a token
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Principal{ID: user.ID, Email: user.Email, Role: domain.RoleUser})
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, User: user}, nil
}

// AuthenticateAdmin checks admin credentials and issues a token carrying the admin role
func (s *Service) AuthenticateAdmin(ctx context.Context, email, password string) (*Session, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(admin.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Principal{ID: admin.ID, Email: admin.Email, Role: admin.Role})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("admin_id", admin.ID).Msg("Admin logged in")
	return &Session{Token: token, Admin: admin}, nil
}

// User returns the user record or domain.ErrNotFound
func (s *Service) User(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// Profile returns the user with balance and bank account
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user, Balance: wallet.Balance}

	bank, err := s.repo.GetBankAccount(ctx, userID)
	switch {
	case err == nil:
		profile.BankAccount = bank
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	return profile, nil
}

// Wallet returns the user's wallet
func (s *Service) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.store.GetWallet(ctx, userID)
}

// SaveBankAccount creates or replaces the user's payout account
func (s *Service) SaveBankAccount(ctx context.Context, userID string, in BankAccountInput) (*domain.BankAccount, error) {
	in.BankName = strings.TrimSpace(in.BankName)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.AccountName = strings.TrimSpace(in.AccountName)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.UpsertBankAccount(ctx, &domain.BankAccount{
		UserID:        userID,
		BankName:      in.BankName,
		AccountNumber: in.AccountNumber,
		AccountName:   in.AccountName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		return nil, err
	}

	return s.repo.GetBankAccount(ctx, userID)
}

// BankAccount returns the user's payout account or domain.ErrNotFound
func (s *Service) BankAccount(ctx context.Context, userID string) (*domain.BankAccount, error) {
	return s.repo.GetBankAccount(ctx, userID)
}

// EnsureAdmin creates the admin account when no admin with email exists.
// An existing admin is left untouched, including its password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string, role domain.Role) (*domain.Admin, error) {
	email = normalizeEmail(email)
	if role == "" {
		role = domain.RoleSuperAdmin
	}
	if !role.IsAdmin() {
		return nil, fmt.Errorf("%w: role %q is not an admin role", domain.ErrInvalidInput, role)
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: admin email", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: admin password must be at least 8 characters", domain.ErrInvalidInput)
	}

	existing, err := s.repo.GetAdminByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &domain.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.log.Info().Str("email", email).Str("role", string(role)).Msg("Seeded admin account")
	return admin, nil
}

// jsonFieldName reports validation failures under the request field names
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationError flattens validator errors into one ErrInvalidInput
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
}
