package history

import (
	"context"
	"fmt"
	"time"

	"pamubot/app/config"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sessionRow struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "chat_sessions" }

type messageRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index"`
	Role      string
	Content   string
	CreatedAt time.Time
}

func (messageRow) TableName() string { return "chat_messages" }

// Service is the Postgres-backed history store.
type Service struct {
	db *gorm.DB
}

var _ Store = (*Service)(nil)

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s",
		cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Database)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to connect to postgres")
	}

	if err = db.AutoMigrate(&sessionRow{}, &messageRow{}); err != nil {
		return nil, oops.Wrapf(err, "failed to migrate history schema")
	}

	return &Service{db: db}, nil
}

func (s *Service) CreateSession(ctx context.Context) (string, error) {
	row := sessionRow{ID: uuid.NewString()}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", oops.Wrapf(err, "failed to create session")
	}

	return row.ID, nil
}

func (s *Service) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	var session sessionRow
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, oops.Wrapf(err, "session %s not found", sessionID)
	}

	var rows []messageRow
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, oops.Wrapf(err, "failed to load messages")
	}

	turns := make([]Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, Turn{
			Role:      Role(row.Role),
			Content:   row.Content,
			Timestamp: row.CreatedAt,
		})
	}

	return turns, nil
}

func (s *Service) AppendTurn(ctx context.Context, sessionID, userMsg, assistantMsg string) error {
	now := time.Now()

	rows := []messageRow{
		{SessionID: sessionID, Role: string(RoleUser), Content: userMsg, CreatedAt: now},
		{SessionID: sessionID, Role: string(RoleAssistant), Content: assistantMsg, CreatedAt: now},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&sessionRow{}).
			Where("id = ?", sessionID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return oops.Wrapf(err, "failed to append turn")
	}

	return nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&messageRow{}).Error
	if err != nil {
		return oops.Wrapf(err, "failed to clear session %s", sessionID)
	}

	return nil
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&messageRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sessionRow{}, "id = ?", sessionID).Error
	})
	if err != nil {
		return oops.Wrapf(err, "failed to delete session %s", sessionID)
	}

	return nil
}
