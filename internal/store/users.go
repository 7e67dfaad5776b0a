package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"webstore/internal/models"
	"webstore/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// UserStore owns the account documents: users.json for customers and
// admins.json for administrators. Both are whole-document JSON files.
type UserStore struct {
	mu         sync.RWMutex
	usersPath  string
	adminsPath string
	users      models.UsersDocument
	admins     models.AdminsDocument
}

// Default admin credentials seeded when admins.json does not exist yet.
// The password is stored hashed; change it after first login.
const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
	defaultAdminEmail    = "admin@webstore.com"
)

// NewUserStore loads both documents. A missing users file starts empty; a
// missing admins file is seeded with a default admin account so the store
// is never without an administrator.
func NewUserStore(usersPath, adminsPath string, bcryptCost int) (*UserStore, error) {
	s := &UserStore{usersPath: usersPath, adminsPath: adminsPath}

	if err := readDocument(usersPath, &s.users); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}
	}
	if s.users.Users == nil {
		s.users.Users = []models.User{}
	}

	err := readDocument(adminsPath, &s.admins)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		if err := s.seedDefaultAdmin(bcryptCost); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load admins: %w", err)
	}
	if s.admins.Admins == nil {
		s.admins.Admins = []models.User{}
	}

	return s, nil
}

func (s *UserStore) seedDefaultAdmin(bcryptCost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}
	s.admins.Admins = []models.User{{
		ID:           "admin1",
		Username:     defaultAdminUsername,
		PasswordHash: string(hash),
		Email:        defaultAdminEmail,
		IsAdmin:      true,
		Permissions:  []string{"manage_products", "view_reports"},
		CreatedAt:    time.Now().UTC(),
	}}
	if err := writeDocument(s.adminsPath, &s.admins); err != nil {
		return fmt.Errorf("failed to save admins: %w", err)
	}
	return nil
}

// View runs fn against read-locked user and admin documents
func (s *UserStore) View(fn func(users *models.UsersDocument, admins *models.AdminsDocument)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.users, &s.admins)
}

// MutateUsers applies fn to the users document and persists it, restoring
// the prior in-memory state when fn or the save fails
func (s *UserStore) MutateUsers(fn func(doc *models.UsersDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot models.UsersDocument
	if err := clone(&s.users, &snapshot); err != nil {
		return fmt.Errorf("failed to snapshot users: %w", err)
	}

	if err := fn(&s.users); err != nil {
		s.users = snapshot
		return err
	}

	if err := writeDocument(s.usersPath, &s.users); err != nil {
		s.users = snapshot
		util.DocumentSavesFailedTotal.WithLabelValues("users").Inc()
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

// MutateAdmins applies fn to the admins document and persists it with the
// same rollback discipline as MutateUsers
func (s *UserStore) MutateAdmins(fn func(doc *models.AdminsDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot models.AdminsDocument
	if err := clone(&s.admins, &snapshot); err != nil {
		return fmt.Errorf("failed to snapshot admins: %w", err)
	}

	if err := fn(&s.admins); err != nil {
		s.admins = snapshot
		return err
	}

	if err := writeDocument(s.adminsPath, &s.admins); err != nil {
		s.admins = snapshot
		util.DocumentSavesFailedTotal.WithLabelValues("admins").Inc()
		return fmt.Errorf("failed to save admins: %w", err)
	}
	return nil
}
