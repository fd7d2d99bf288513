package users

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/suenolabs/sueno-api/pkg/apperr"
	"github.com/suenolabs/sueno-api/pkg/auth"
	"github.com/suenolabs/sueno-api/pkg/googleauth"
	"github.com/suenolabs/sueno-api/pkg/mailer"
	"github.com/suenolabs/sueno-api/pkg/observability"
	"github.com/suenolabs/sueno-api/pkg/supabase"
)

const roleCacheSize = 32

// Service orchestrates account operations against the remote store.
type Service struct {
	store      *supabase.Client
	tokens     *auth.TokenManager
	resetCodes auth.ResetCodeStore
	mail       mailer.Mailer
	resetTTL   time.Duration
	logger     *observability.Logger
	metrics    *observability.Metrics

	// Role names are tiny and effectively static, so cache id->name
	// lookups instead of hitting the store on every login.
	roleCache *lru.Cache[int64, string]
}

// NewService creates the user service. metrics may be nil.
func NewService(store *supabase.Client, tokens *auth.TokenManager, resetCodes auth.ResetCodeStore, mail mailer.Mailer, resetTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Service {
	cache, _ := lru.New[int64, string](roleCacheSize)
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		store:      store,
		tokens:     tokens,
		resetCodes: resetCodes,
		mail:       mail,
		resetTTL:   resetTTL,
		logger:     logger,
		metrics:    metrics,
		roleCache:  cache,
	}
}

var errInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid credentials")

// Login authenticates by email and password. Unknown email and wrong
// password produce the same error so callers can't enumerate accounts.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	var rows []userRow
	if err := s.store.From("users").Select("*").Eq("email", email).Limit(1).Do(ctx, &rows); err != nil {
		s.countLogin("error")
		return Session{}, err
	}
	if len(rows) == 0 {
		s.countLogin("failure")
		return Session{}, errInvalidCredentials
	}
	user := rows[0]

	if !auth.CheckPassword(password, user.HashedPassword) {
		s.countLogin("failure")
		return Session{}, errInvalidCredentials
	}

	role, err := s.roleName(ctx, user.RoleID)
	if err != nil {
		s.countLogin("error")
		return Session{}, err
	}

	name := s.displayName(ctx, user)
	session, err := s.newSession(user.ID, user.Email, role, name)
	if err != nil {
		s.countLogin("error")
		return Session{}, err
	}

	s.countLogin("success")
	return session, nil
}

// GoogleLogin signs in a caller whose Google ID token was already
// verified, creating the account on first sight.
func (s *Service) GoogleLogin(ctx context.Context, identity googleauth.Identity) (Session, error) {
	var rows []userRow
	if err := s.store.From("users").Select("*").Eq("email", identity.Email).Limit(1).Do(ctx, &rows); err != nil {
		return Session{}, err
	}

	if len(rows) > 0 {
		user := rows[0]
		role, err := s.roleName(ctx, user.RoleID)
		if err != nil {
			return Session{}, err
		}
		return s.newSession(user.ID, user.Email, role, identity.Name)
	}

	// First Google sign-in: provision the account. The password slot is
	// filled with a hash of the Google subject so it can never match a
	// typed password.
	hashed, err := auth.HashPassword(identity.Subject)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Upstream, "could not create account", err)
	}

	var created []userRow
	insert := map[string]interface{}{
		"email":           identity.Email,
		"hashed_password": hashed,
		"full_name":       identity.Name,
		"role_id":         auth.RoleIDUser,
		"is_active":       true,
		"is_verified":     true,
	}
	if err := s.store.From("users").Insert(insert).Do(ctx, &created); err != nil {
		return Session{}, err
	}
	if len(created) == 0 {
		return Session{}, apperr.New(apperr.Upstream, "could not create account")
	}
	user := created[0]

	s.createProfileBestEffort(ctx, user.ID, ProfileUpdate{Name: &identity.Name})

	role, err := s.roleName(ctx, user.RoleID)
	if err != nil {
		return Session{}, err
	}
	return s.newSession(user.ID, user.Email, role, identity.Name)
}

// Register creates an account with the non-privileged role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	var existing []userRow
	if err := s.store.From("users").Select("id").Eq("email", input.Email).Limit(1).Do(ctx, &existing); err != nil {
		// The duplicate check is advisory; the insert below is the real
		// gate. Log and continue.
		s.logger.WithError(err).Warn("duplicate email check failed")
	}
	if len(existing) > 0 {
		s.countRegistration("conflict")
		return User{}, apperr.New(apperr.Conflict, "email already registered")
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		s.countRegistration("error")
		return User{}, apperr.Wrap(apperr.Upstream, "could not create account", err)
	}

	var created []userRow
	insert := map[string]interface{}{
		"email":           input.Email,
		"hashed_password": hashed,
		"full_name":       input.FullName,
		"role_id":         auth.RoleIDUser,
		"age":             input.Age,
		"phone":           input.Phone,
		"gender":          input.Gender,
		"is_active":       true,
		"is_verified":     false,
	}
	if err := s.store.From("users").Insert(insert).Do(ctx, &created); err != nil {
		if apperr.IsKind(err, apperr.Conflict) {
			s.countRegistration("conflict")
			return User{}, apperr.New(apperr.Conflict, "email already registered")
		}
		s.countRegistration("error")
		return User{}, err
	}
	if len(created) == 0 {
		s.countRegistration("error")
		return User{}, apperr.New(apperr.Upstream, "could not create account")
	}
	user := created[0]

	s.createProfileBestEffort(ctx, user.ID, ProfileUpdate{
		Name:   &input.FullName,
		Age:    input.Age,
		Phone:  input.Phone,
		Gender: input.Gender,
	})

	role, err := s.roleName(ctx, user.RoleID)
	if err != nil {
		role = auth.RoleUser
	}

	s.countRegistration("success")
	return user.toUser(role), nil
}

// Get returns one account by ID with its role name resolved.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	var rows []userRow
	if err := s.store.From("users").Select("*").Eq("id", id).Limit(1).Do(ctx, &rows); err != nil {
		return User{}, err
	}
	if len(rows) == 0 {
		return User{}, apperr.New(apperr.NotFound, "user not found")
	}

	role, err := s.roleName(ctx, rows[0].RoleID)
	if err != nil {
		role = "unknown"
	}
	return rows[0].toUser(role), nil
}

// List returns all accounts with role names resolved.
func (s *Service) List(ctx context.Context) ([]User, error) {
	var rows []userRow
	if err := s.store.From("users").Select("*").Do(ctx, &rows); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		role, err := s.roleName(ctx, row.RoleID)
		if err != nil {
			role = "unknown"
		}
		users = append(users, row.toUser(role))
	}
	return users, nil
}

// Update modifies an account. Nil input fields are left unchanged; a new
// password is hashed before it is stored.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	patch := map[string]interface{}{}
	if input.Email != nil {
		patch["email"] = *input.Email
	}
	if input.Password != nil {
		hashed, err := auth.HashPassword(*input.Password)
		if err != nil {
			return User{}, apperr.Wrap(apperr.Upstream, "could not update user", err)
		}
		patch["hashed_password"] = hashed
	}
	if input.FullName != nil {
		patch["full_name"] = *input.FullName
	}
	if input.RoleID != nil {
		patch["role_id"] = *input.RoleID
	}
	if input.IsActive != nil {
		patch["is_active"] = *input.IsActive
	}
	if input.Age != nil {
		patch["age"] = *input.Age
	}
	if input.Phone != nil {
		patch["phone"] = *input.Phone
	}
	if input.Gender != nil {
		patch["gender"] = *input.Gender
	}
	if len(patch) == 0 {
		return User{}, apperr.New(apperr.Validation, "no fields to update")
	}

	var rows []userRow
	if err := s.store.From("users").Update(patch).Eq("id", id).Do(ctx, &rows); err != nil {
		return User{}, err
	}
	if len(rows) == 0 {
		return User{}, apperr.New(apperr.NotFound, "user not found")
	}

	role, err := s.roleName(ctx, rows[0].RoleID)
	if err != nil {
		role = "unknown"
	}
	return rows[0].toUser(role), nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var rows []userRow
	if err := s.store.From("users").Delete().Eq("id", id).Do(ctx, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// GetProfile returns the caller's profile, creating a default one from
// the account record on first access.
func (s *Service) GetProfile(ctx context.Context, userID int64, email string) (Profile, error) {
	var rows []profileRow
	if err := s.store.From("profiles").Select("*").Eq("id", userID).Do(ctx, &rows); err != nil {
		return Profile{}, err
	}
	if len(rows) > 0 {
		return profileToResponse(rows[0], email), nil
	}

	// No profile yet; seed one from the account's name.
	defaultName := localPart(email)
	var userRows []userRow
	if err := s.store.From("users").Select("full_name").Eq("id", userID).Do(ctx, &userRows); err == nil {
		if len(userRows) > 0 && userRows[0].FullName != "" {
			defaultName = userRows[0].FullName
		}
	}

	var created []profileRow
	insert := map[string]interface{}{"id": userID, "name": defaultName}
	if err := s.store.From("profiles").Insert(insert).Do(ctx, &created); err == nil && len(created) > 0 {
		return profileToResponse(created[0], email), nil
	}

	// Creation failed; return the constructed default without persisting.
	return Profile{ID: userID, Name: &defaultName, Email: email}, nil
}

// UpdateProfile patches the caller's profile, creating it if absent.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, email string, update ProfileUpdate) (Profile, error) {
	if update.IsEmpty() {
		return Profile{}, apperr.New(apperr.Validation, "no fields to update")
	}

	var existing []profileRow
	if err := s.store.From("profiles").Select("id").Eq("id", userID).Do(ctx, &existing); err != nil {
		return Profile{}, err
	}

	patch := map[string]interface{}{}
	if update.Name != nil {
		patch["name"] = *update.Name
	}
	if update.Age != nil {
		patch["age"] = *update.Age
	}
	if update.Phone != nil {
		patch["phone"] = *update.Phone
	}
	if update.Gender != nil {
		patch["gender"] = *update.Gender
	}

	var rows []profileRow
	if len(existing) > 0 {
		if err := s.store.From("profiles").Update(patch).Eq("id", userID).Do(ctx, &rows); err != nil {
			return Profile{}, err
		}
	} else {
		patch["id"] = userID
		if err := s.store.From("profiles").Insert(patch).Do(ctx, &rows); err != nil {
			return Profile{}, err
		}
	}
	if len(rows) == 0 {
		return Profile{}, apperr.New(apperr.Upstream, "could not update profile")
	}

	return profileToResponse(rows[0], email), nil
}

// RequestPasswordReset creates a one-time code for a known email and
// mails it. Unknown emails are reported as NotFound; a mail delivery
// failure surfaces rather than pretending the code was sent.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	var rows []userRow
	if err := s.store.From("users").Select("id").Eq("email", email).Limit(1).Do(ctx, &rows); err != nil {
		s.countReset("request", "error")
		return err
	}
	if len(rows) == 0 {
		s.countReset("request", "unknown_email")
		return apperr.New(apperr.NotFound, "no account with that email")
	}

	code, err := auth.GenerateResetCode()
	if err != nil {
		s.countReset("request", "error")
		return apperr.Wrap(apperr.Upstream, "could not create reset code", err)
	}
	if err := s.resetCodes.Create(ctx, email, code, s.resetTTL); err != nil {
		s.countReset("request", "error")
		return apperr.Wrap(apperr.Upstream, "could not create reset code", err)
	}

	if err := s.mail.SendResetCode(email, code); err != nil {
		s.countReset("request", "error")
		return apperr.Wrap(apperr.Upstream, "could not send reset email", err)
	}

	s.countReset("request", "success")
	return nil
}

// ResetPassword consumes a reset code and stores the new password hash.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.resetCodes.Consume(ctx, email, code); err != nil {
		s.countReset("confirm", "rejected")
		switch {
		case errors.Is(err, auth.ErrCodeNotFound):
			return apperr.New(apperr.Validation, "no active reset request")
		case errors.Is(err, auth.ErrCodeExpired):
			return apperr.New(apperr.Validation, "reset code expired, request a new one")
		case errors.Is(err, auth.ErrCodeMismatch):
			return apperr.New(apperr.Validation, "incorrect reset code")
		default:
			return apperr.Wrap(apperr.Upstream, "could not verify reset code", err)
		}
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		s.countReset("confirm", "error")
		return apperr.Wrap(apperr.Upstream, "could not update password", err)
	}

	patch := map[string]interface{}{"hashed_password": hashed}
	if err := s.store.From("users").Update(patch).Eq("email", email).Do(ctx, nil); err != nil {
		s.countReset("confirm", "error")
		return err
	}

	s.countReset("confirm", "success")
	return nil
}

func (s *Service) newSession(id int64, email, role, name string) (Session, error) {
	principal := auth.Principal{
		ID:    strconv.FormatInt(id, 10),
		Email: email,
		Role:  role,
		Name:  name,
	}
	token, err := s.tokens.Issue(principal)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.Upstream, "could not issue token", err)
	}
	return Session{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        role,
		User: SessionUser{
			ID:    id,
			Email: email,
			Name:  name,
			Role:  role,
		},
	}, nil
}

// displayName resolves the name shown to the user: the profile name if
// present, else the account's full name, else the email local part.
func (s *Service) displayName(ctx context.Context, user userRow) string {
	var profiles []profileRow
	if err := s.store.From("profiles").Select("name").Eq("id", user.ID).Do(ctx, &profiles); err == nil {
		if len(profiles) > 0 && profiles[0].Name != nil && *profiles[0].Name != "" {
			return *profiles[0].Name
		}
	}
	if user.FullName != "" {
		return user.FullName
	}
	return localPart(user.Email)
}

func (s *Service) roleName(ctx context.Context, roleID int64) (string, error) {
	if name, ok := s.roleCache.Get(roleID); ok {
		return name, nil
	}

	var rows []roleRow
	if err := s.store.From("roles").Select("name").Eq("id", roleID).Do(ctx, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", apperr.Newf(apperr.Upstream, "unknown role id %d", roleID)
	}

	s.roleCache.Add(roleID, rows[0].Name)
	return rows[0].Name, nil
}

func (s *Service) createProfileBestEffort(ctx context.Context, userID int64, p ProfileUpdate) {
	insert := map[string]interface{}{"id": userID}
	if p.Name != nil {
		insert["name"] = *p.Name
	}
	if p.Age != nil {
		insert["age"] = *p.Age
	}
	if p.Phone != nil {
		insert["phone"] = *p.Phone
	}
	if p.Gender != nil {
		insert["gender"] = *p.Gender
	}

	// Profile creation failure does not fail the registration. The user
	// row already exists; the profile is seeded on first access instead.
	if err := s.store.From("profiles").Insert(insert).Do(ctx, nil); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("profile creation failed, continuing")
	}
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countReset(stage, outcome string) {
	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues(stage, outcome).Inc()
	}
}

func profileToResponse(row profileRow, email string) Profile {
	return Profile{
		ID:     row.ID,
		Name:   row.Name,
		Email:  email,
		Age:    row.Age,
		Phone:  row.Phone,
		Gender: row.Gender,
	}
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
