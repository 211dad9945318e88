package portal

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/store"
)

// Bootstrap seeds the admin credential when none is stored. An empty
// password generates a random one, which is logged once. The password is
// kept and reused if the stored credential is later lost.
func (s *Service) Bootstrap(ctx context.Context, password string) error {
	s.adminPassword = password
	_, _, err := s.adminCredential(ctx)
	return err
}

// adminCredential reads the stored credential, seeding it first when the
// document is missing or unreadable.
func (s *Service) adminCredential(ctx context.Context) (store.AdminCredential, uint64, error) {
	cred, rev, err := s.store.Credential(ctx)
	if err != nil || cred.PasswordHash != "" {
		return cred, rev, err
	}

	password := s.adminPassword
	generated := password == ""
	if generated {
		if password, err = auth.GeneratePassword(); err != nil {
			return cred, rev, err
		}
	}

	phc, err := auth.HashPassword(auth.ClientHash(password))
	if err != nil {
		return cred, rev, fmt.Errorf("failed to hash admin password: %w", err)
	}
	cred.PasswordHash = phc
	if rev, err = s.store.PutCredential(ctx, cred, rev); err != nil {
		return cred, rev, err
	}

	if generated {
		s.log.Warn("no admin credential found, generated a password; change it after first login",
			logger.String("password", password))
	} else {
		s.log.Info("admin credential seeded from configuration")
	}
	return cred, rev, nil
}

// Verify reports whether passwordHash matches the stored credential.
// A legacy plain credential is re-stored as argon2id on a match.
func (s *Service) Verify(ctx context.Context, passwordHash string) (bool, error) {
	if passwordHash == "" {
		return false, invalid("passwordHash is required")
	}

	cred, rev, err := s.adminCredential(ctx)
	if err != nil {
		return false, err
	}

	ok, upgrade := auth.Match(cred.PasswordHash, passwordHash)
	if ok && upgrade {
		s.upgradeCredential(ctx, passwordHash, rev)
	}
	return ok, nil
}

func (s *Service) upgradeCredential(ctx context.Context, passwordHash string, rev uint64) {
	phc, err := auth.HashPassword(passwordHash)
	if err == nil {
		_, err = s.store.PutCredential(ctx, credential(phc), rev)
	}
	if err != nil {
		s.log.Warn("failed to upgrade legacy admin credential", logger.Error(err))
		return
	}
	s.log.Info("legacy admin credential upgraded to argon2id")
}

// ChangePassword replaces the credential when currentHash matches.
func (s *Service) ChangePassword(ctx context.Context, currentHash, newHash string) error {
	if currentHash == "" || newHash == "" {
		return invalid("currentHash and newHash are required")
	}

	cred, rev, err := s.adminCredential(ctx)
	if err != nil {
		return err
	}
	if ok, _ := auth.Match(cred.PasswordHash, currentHash); !ok {
		return forbidden("current password is incorrect")
	}

	phc, err := auth.HashPassword(newHash)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if _, err := s.store.PutCredential(ctx, credential(phc), rev); err != nil {
		return err
	}
	s.log.Info("admin password changed")
	return nil
}

func credential(phc string) store.AdminCredential {
	return store.AdminCredential{PasswordHash: phc}
}
