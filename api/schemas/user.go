package schemas

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Role controls what a user can do.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleCustomer  Role = "customer"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Permissions returns the permission set granted by the role.
func (r Role) Permissions() map[string]struct{} {
	grant := func(names ...string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		return set
	}

	switch r {
	case RoleGuest:
		return grant("view_products", "view_categories")
	case RoleCustomer:
		return grant("view_products", "view_categories", "place_orders",
			"view_own_orders", "manage_own_profile", "add_to_cart")
	case RoleModerator:
		return grant("view_products", "view_categories", "moderate_reviews",
			"view_user_profiles", "manage_products")
	case RoleAdmin:
		return grant("view_products", "view_categories", "place_orders",
			"view_own_orders", "manage_own_profile", "add_to_cart",
			"moderate_reviews", "view_user_profiles", "manage_products",
			"manage_users", "view_analytics", "system_admin")
	default:
		return map[string]struct{}{}
	}
}

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	UserActive              UserStatus = "active"
	UserInactive            UserStatus = "inactive"
	UserSuspended           UserStatus = "suspended"
	UserPendingVerification UserStatus = "pending_verification"
	UserLocked              UserStatus = "locked"
)

// CanLogin reports whether the status allows authentication.
func (s UserStatus) CanLogin() bool {
	return s == UserActive
}

const (
	maxLoginAttempts = 5
	lockoutDuration  = 30 * time.Minute
	maxAddresses     = 10
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,50}$`)

// Credentials holds authentication data. Password material is stored hashed
// only and excluded from JSON.
type Credentials struct {
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Salt          string     `json:"-"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	LoginAttempts int        `json:"login_attempts"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
}

// Validate checks the username and email.
func (c *Credentials) Validate() error {
	if !usernamePattern.MatchString(c.Username) {
		return errs.NewValidationError("username",
			"must be 3-50 characters of alphanumerics, dots, hyphens, underscores")
	}
	if !emailPattern.MatchString(c.Email) {
		return errs.NewValidationError("email", "invalid email address")
	}
	return nil
}

// Locked reports whether the account is currently locked out.
func (c *Credentials) Locked() bool {
	return c.LockedUntil != nil && c.LockedUntil.After(time.Now().UTC())
}

// RecordFailedLogin counts a failed attempt. The account locks for 30 minutes
// after the fifth consecutive failure.
func (c *Credentials) RecordFailedLogin() {
	c.LoginAttempts++
	if c.LoginAttempts >= maxLoginAttempts {
		until := time.Now().UTC().Add(lockoutDuration)
		c.LockedUntil = &until
	}
}

// RecordSuccessfulLogin clears the failure counter and stamps the login time.
func (c *Credentials) RecordSuccessfulLogin() {
	now := time.Now().UTC()
	c.LoginAttempts = 0
	c.LockedUntil = nil
	c.LastLogin = &now
}

// Profile carries the non-authentication personal data of a user.
type Profile struct {
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	DisplayName       string    `json:"display_name,omitempty"`
	Contact           Contact   `json:"contact"`
	Addresses         []Address `json:"addresses,omitempty"`
	NewsletterOptIn   bool      `json:"newsletter_opt_in"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	Timezone          string    `json:"timezone,omitempty"`
}

// Validate checks the profile fields.
func (p *Profile) Validate() error {
	if p.FirstName == "" || p.LastName == "" {
		return errs.NewValidationError("name", "first and last name are required")
	}
	if len(p.Addresses) > maxAddresses {
		return errs.NewValidationError("addresses",
			fmt.Sprintf("at most %d addresses allowed", maxAddresses))
	}
	if err := p.Contact.Validate(); err != nil {
		return err
	}
	for _, a := range p.Addresses {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FullName joins first and last name.
func (p *Profile) FullName() string {
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}

// Identifier returns the name shown in the UI.
func (p *Profile) Identifier() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.FullName()
}

// AddAddress appends an address, enforcing the per-user cap.
func (p *Profile) AddAddress(a Address) error {
	if len(p.Addresses) >= maxAddresses {
		return errs.NewValidationError("addresses", "maximum number of addresses reached")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	p.Addresses = append(p.Addresses, a)
	return nil
}

// PrimaryAddress returns the first address, or nil when none exist.
func (p *Profile) PrimaryAddress() *Address {
	if len(p.Addresses) == 0 {
		return nil
	}
	return &p.Addresses[0]
}

// User is the aggregate root of the account domain.
type User struct {
	Entity

	Credentials       Credentials `json:"credentials"`
	Profile           Profile     `json:"profile"`
	Role              Role        `json:"role"`
	Status            UserStatus  `json:"status"`
	Audit             Audit       `json:"audit,omitempty"`
	EmailVerified     bool        `json:"email_verified"`
	VerificationToken string      `json:"-"`
	LastActivity      *time.Time  `json:"last_activity,omitempty"`
	SignupSource      string      `json:"signup_source,omitempty"`
}

// Validate checks consistency across credentials, profile, and status.
func (u *User) Validate() error {
	if err := u.Entity.Validate(); err != nil {
		return err
	}
	if err := u.Credentials.Validate(); err != nil {
		return err
	}
	if err := u.Profile.Validate(); err != nil {
		return err
	}
	if u.Status == UserActive && !u.EmailVerified {
		return errs.NewValidationError("status", "active users must have a verified email")
	}
	if u.Profile.Contact.Email != "" &&
		!strings.EqualFold(u.Profile.Contact.Email, u.Credentials.Email) {
		return errs.NewValidationError("contact.email", "must match credentials email")
	}
	return nil
}

// HasPermission reports whether the user's role grants the permission.
func (u *User) HasPermission(permission string) bool {
	_, ok := u.Role.Permissions()[permission]
	return ok
}

// CanLogin reports whether the account can authenticate right now.
func (u *User) CanLogin() bool {
	return u.Status.CanLogin() && !u.Credentials.Locked() && u.EmailVerified
}

// VerifyEmail consumes the verification token. Pending accounts activate on
// success.
func (u *User) VerifyEmail(token string) bool {
	if token == "" || u.VerificationToken != token {
		return false
	}
	u.EmailVerified = true
	u.VerificationToken = ""
	if u.Status == UserPendingVerification {
		u.Status = UserActive
	}
	u.Touch()
	return true
}

// Suspend disables the account.
func (u *User) Suspend(reason string) {
	u.Status = UserSuspended
	if reason != "" {
		u.Audit.Source = "suspended: " + reason
	}
	u.Touch()
}

// ChangeRole swaps the user's role, recording who did it.
func (u *User) ChangeRole(newRole Role, changedBy string) {
	oldRole := u.Role
	u.Role = newRole
	if changedBy != "" {
		u.Audit.UpdatedBy = changedBy
		u.Audit.Source = fmt.Sprintf("role_change: %s -> %s", oldRole, newRole)
	}
	u.Touch()
}

// RecordActivity stamps the last-activity time.
func (u *User) RecordActivity() {
	now := time.Now().UTC()
	u.LastActivity = &now
}

// NewUser builds a pending-verification user ready for registration flows.
func NewUser(username, email, firstName, lastName string) *User {
	email = strings.ToLower(email)
	return &User{
		Entity: NewEntity(),
		Credentials: Credentials{
			Username: username,
			Email:    email,
		},
		Profile: Profile{
			FirstName: firstName,
			LastName:  lastName,
			Contact:   Contact{Email: email},
		},
		Role:              RoleCustomer,
		Status:            UserPendingVerification,
		VerificationToken: uuid.New().String(),
		Audit:             Audit{CreatedBy: "system", Source: "registration"},
	}
}
