package database

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
)

// DefaultSeedPassword is the password kept valid for the seed accounts
// unless overridden.
const DefaultSeedPassword = "05240126"

// SeedUsernames are the family accounts that always exist.
var SeedUsernames = []string{"肥肥", "美美"}

// seedUsers creates the seed accounts if missing and resets their password
// when the stored hash no longer matches the seed password.
func (d *Database) seedUsers(ctx context.Context, password string) error {
	for _, username := range SeedUsernames {
		u, err := d.GetUserByUsername(ctx, username)
		if errors.Is(err, ErrNotFound) {
			if _, err := d.CreateUser(ctx, username, password, username); err != nil {
				return fmt.Errorf("create %s: %w", username, err)
			}
			logging.Info("Created seed account %s", username)
			continue
		}
		if err != nil {
			return err
		}

		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
			continue
		}
		if err := d.UpdatePassword(ctx, username, password); err != nil {
			return fmt.Errorf("reset %s: %w", username, err)
		}
		logging.Info("Reset password of seed account %s", username)
	}
	return nil
}
