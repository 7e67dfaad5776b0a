package service

import (
	"context"
	"fmt"
	"time"

	"webstore/internal/models"
	"webstore/internal/store"
	"webstore/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login, and role checks against the
// user and admin account documents. Passwords are only ever stored as
// bcrypt hashes.
type AuthService struct {
	users      *store.UserStore
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *store.UserStore, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		bcryptCost: bcryptCost,
		logger:     util.GetLogger(),
	}
}

// Register creates a new customer account. Usernames are case-sensitive
// and must be unique across customers and admins alike.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	_, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", ErrInvalidInput)
	}

	taken := false
	s.users.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		for i := range users.Users {
			if users.Users[i].Username == username {
				taken = true
				return
			}
		}
		for i := range admins.Admins {
			if admins.Admins[i].Username == username {
				taken = true
				return
			}
		}
	})
	if taken {
		return nil, fmt.Errorf("username %s: %w", username, ErrUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var created models.User
	err = s.users.MutateUsers(func(doc *models.UsersDocument) error {
		// Re-check under the write lock; View released its lock above.
		for i := range doc.Users {
			if doc.Users[i].Username == username {
				return fmt.Errorf("username %s: %w", username, ErrUsernameTaken)
			}
		}
		created = models.User{
			ID:           fmt.Sprintf("user%d", len(doc.Users)+1),
			Username:     username,
			PasswordHash: string(hash),
			Email:        email,
			IsAdmin:      false,
			CreatedAt:    time.Now().UTC(),
		}
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.RegistrationsTotal.Inc()
	s.logger.Info("User registered", zap.String("username", username))

	created.PasswordHash = ""
	return &created, nil
}

// Login authenticates a customer or admin. Unknown usernames and wrong
// passwords fail with the identical ErrInvalidCredentials, so responses
// never reveal whether an account exists.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	_, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	var account *models.User
	var isAdmin bool
	s.users.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		for i := range users.Users {
			if users.Users[i].Username == username {
				cp := users.Users[i]
				account = &cp
				return
			}
		}
		for i := range admins.Admins {
			if admins.Admins[i].Username == username {
				cp := admins.Admins[i]
				account = &cp
				isAdmin = true
				return
			}
		}
	})

	if account == nil {
		// Burn a comparison anyway so unknown usernames cost the same
		// as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password))
		util.LoginsFailedTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		util.LoginsFailedTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if isAdmin {
		err := s.users.MutateAdmins(func(doc *models.AdminsDocument) error {
			for i := range doc.Admins {
				if doc.Admins[i].Username == username {
					doc.Admins[i].LastLogin = &now
					return nil
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to record admin login time", zap.Error(err))
		}
	} else {
		err := s.users.MutateUsers(func(doc *models.UsersDocument) error {
			for i := range doc.Users {
				if doc.Users[i].Username == username {
					doc.Users[i].LastLogin = &now
					return nil
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to record login time", zap.Error(err))
		}
	}

	util.LoginsTotal.Inc()
	s.logger.Info("Login succeeded",
		zap.String("username", username),
		zap.Bool("admin", account.IsAdmin))

	account.LastLogin = &now
	account.PasswordHash = ""
	return account, nil
}

// Authorize checks the caller's role. requireAdmin operations fail with
// ErrForbidden for customer accounts.
func (s *AuthService) Authorize(user *models.User, requireAdmin bool) error {
	if user == nil {
		return ErrForbidden
	}
	if requireAdmin && !user.IsAdmin {
		return fmt.Errorf("user %s is not an admin: %w", user.Username, ErrForbidden)
	}
	return nil
}

// FindByID returns the account with the given ID, customer or admin
func (s *AuthService) FindByID(ctx context.Context, id string) (*models.User, error) {
	var found *models.User
	s.users.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		for i := range users.Users {
			if users.Users[i].ID == id {
				cp := users.Users[i]
				found = &cp
				return
			}
		}
		for i := range admins.Admins {
			if admins.Admins[i].ID == id {
				cp := admins.Admins[i]
				found = &cp
				return
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	found.PasswordHash = ""
	return found, nil
}

// OrderHistory returns the user's completed orders, oldest first
func (s *AuthService) OrderHistory(ctx context.Context, userID string) ([]models.Order, error) {
	_, span := util.StartSpan(ctx, "AuthService.OrderHistory")
	defer span.End()

	var history []models.Order
	found := false
	s.users.View(func(users *models.UsersDocument, admins *models.AdminsDocument) {
		for i := range users.Users {
			if users.Users[i].ID == userID {
				found = true
				history = make([]models.Order, len(users.Users[i].OrderHistory))
				copy(history, users.Users[i].OrderHistory)
				return
			}
		}
	})
	if !found {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return history, nil
}
