// Package seed loads initial dashboard accounts from a YAML file at
// startup. Existing emails are left untouched, so the file can stay in
// place across restarts.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
	"github.com/levywanke/Tracking-System/pkg/crypto"
)

type usersFile struct {
	Users []struct {
		Name       string `yaml:"name"`
		Email      string `yaml:"email"`
		Password   string `yaml:"password"`
		Role       string `yaml:"role"`
		TOTPSecret string `yaml:"totp_secret"`
	} `yaml:"users"`
}

// Users reads the file and creates any accounts not already present.
func Users(ctx context.Context, users repository.UserRepository, path string, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	for _, entry := range uf.Users {
		email := strings.ToLower(strings.TrimSpace(entry.Email))
		if email == "" || entry.Password == "" {
			continue
		}
		if _, err := users.GetUserByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := crypto.HashPassword(entry.Password)
		if err != nil {
			return err
		}
		role := entry.Role
		if role != domain.RoleAdmin {
			role = domain.RoleUser
		}
		secret := strings.TrimSpace(entry.TOTPSecret)
		user := &domain.User{
			ID:               uuid.NewString(),
			Email:            email,
			PasswordHash:     hash,
			Name:             strings.TrimSpace(entry.Name),
			Role:             role,
			TwoFactorEnabled: secret != "",
			TwoFactorSecret:  secret,
			CreatedAt:        time.Now().UTC(),
		}
		if err := users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				continue
			}
			return err
		}
		log.Info("seeded user", "email", email, "role", role)
	}
	return nil
}
