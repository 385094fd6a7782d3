package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/config"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/internal/service"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var demoUsers = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank"}

func main() {
	cfg, _ := config.Load()

	log, err := logger.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("connected to database")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	convService := service.NewConversationService(convRepo, msgRepo, userRepo, log)
	msgService := service.NewMessageService(convRepo, msgRepo, userRepo, nil, nil, log)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	log.Info("seeding users", zap.Int("count", len(demoUsers)))
	users := make([]model.User, 0, len(demoUsers))
	for _, name := range demoUsers {
		u, err := seedUser(ctx, db, userRepo, name)
		if err != nil {
			log.Fatal("seed user", zap.String("name", name), zap.Error(err))
		}
		users = append(users, *u)

		token, err := jwtManager.GenerateToken(u.ID, u.Email, u.Name)
		if err != nil {
			log.Fatal("generate token", zap.Error(err))
		}
		log.Info("user ready", zap.String("name", u.Name), zap.String("id", u.ID.String()), zap.String("token", token))
	}

	alice, bob, carol := users[0], users[1], users[2]

	// Direct conversation Alice -> Bob with a short exchange
	direct, err := convService.StartConversation(ctx, alice.ID, bob.ID)
	switch {
	case err == nil:
		mustSend(ctx, log, msgService, alice.ID, direct.ID, "Hi Bob!")
		mustSend(ctx, log, msgService, bob.ID, direct.ID, "Hey Alice, how are you?")
		log.Info("created direct conversation", zap.String("id", direct.ID.String()))
	case errors.Is(err, apperror.ErrConflict):
		log.Info("direct conversation Alice/Bob already exists")
	default:
		log.Fatal("start conversation", zap.Error(err))
	}

	// Demo group
	var count int64
	db.Model(&model.ConversationRecord{}).Where("group_name = ?", "Team").Count(&count)
	if count == 0 {
		group, err := convService.CreateGroupChat(ctx, alice.ID, "Team", []uuid.UUID{bob.ID, carol.ID})
		if err != nil {
			log.Fatal("create group", zap.Error(err))
		}
		mustSend(ctx, log, msgService, alice.ID, group.ID, "Welcome to the team!")
		log.Info("created demo group", zap.String("id", group.ID.String()), zap.Int("members", len(group.Participants())))
	}

	log.Info("seeding completed")
}

func seedUser(ctx context.Context, db *gorm.DB, users *repository.UserRepository, name string) (*model.User, error) {
	email := strings.ToLower(name) + "@chatcore.local"

	var existing model.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return &existing, nil
	}

	avatar := "https://api.dicebear.com/7.x/avataaars/svg?seed=" + strings.ToLower(name)
	u := &model.User{Name: name, Email: email, Avatar: &avatar}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func mustSend(ctx context.Context, log *logger.Logger, msgs *service.MessageService, from, conversationID uuid.UUID, text string) {
	if _, err := msgs.SendMessage(ctx, from, conversationID, text); err != nil {
		log.Fatal("send message", zap.Error(err))
	}
}
