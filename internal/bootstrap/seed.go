package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/chainvote/govboard/internal/model"
	"github.com/chainvote/govboard/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedUsers creates a handful of development users so mention resolution and
// the leaderboard have something to work with. No-op outside an empty table.
func SeedUsers(db *gorm.DB) error {
	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)

	count, err := userRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for _, username := range []string{"alice", "bob", "carol"} {
		user := &model.User{
			Username:     username,
			Email:        fmt.Sprintf("%s@example.com", username),
			PasswordHash: string(hash),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}
	}

	log.Println("✅ Seeded development users")
	return nil
}
