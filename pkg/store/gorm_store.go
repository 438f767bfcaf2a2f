package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"leasemail/pkg/domain"
)

const migrateLockID int64 = 51040145

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ContactModel{}, &ConversationModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// LoadContacts reads the contacts table.
func (s *GormStore) LoadContacts(ctx context.Context) (domain.Contacts, error) {
	var models []ContactModel
	if err := s.db.WithContext(ctx).Order("email ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	contacts := make(domain.Contacts, len(models))
	for _, m := range models {
		contacts[m.Email] = contactFromModel(m)
	}
	return contacts, nil
}

// SaveContacts replaces the contacts table in one transaction.
func (s *GormStore) SaveContacts(ctx context.Context, contacts domain.Contacts) error {
	now := time.Now().UTC()
	models := make([]ContactModel, 0, len(contacts))
	emails := make([]string, 0, len(contacts))
	for email, c := range contacts {
		models = append(models, contactToModel(email, c, now))
		emails = append(emails, email)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if len(emails) > 0 {
			del = del.Where("email NOT IN ?", emails)
		}
		if err := del.Delete(&ContactModel{}).Error; err != nil {
			return fmt.Errorf("prune contacts: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "company", "industry", "updated_at"}),
		}).CreateInBatches(&models, 200).Error; err != nil {
			return fmt.Errorf("save contacts: %w", err)
		}
		return nil
	})
}

// LoadHistory reads the conversation row for identity.
func (s *GormStore) LoadHistory(ctx context.Context, identity string) (domain.History, error) {
	key := UserKey(identity)
	var model ConversationModel
	if err := s.db.WithContext(ctx).First(&model, "user_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.History{}, nil
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	var history domain.History
	if len(model.Messages) > 0 {
		if err := json.Unmarshal(model.Messages, &history); err != nil {
			return nil, corrupt("conversation_models/"+key, err)
		}
	}
	if history == nil {
		history = domain.History{}
	}
	return history, nil
}

// SaveHistory upserts the conversation row for identity.
func (s *GormStore) SaveHistory(ctx context.Context, identity string, history domain.History) error {
	if history == nil {
		history = domain.History{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	model := ConversationModel{
		UserKey:   UserKey(identity),
		Messages:  datatypes.JSON(data),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
	}).Create(&model).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func contactToModel(email string, c domain.Contact, now time.Time) ContactModel {
	return ContactModel{
		Email:     email,
		Name:      c.Name,
		Phone:     c.Phone,
		Company:   c.Company,
		Industry:  c.Industry,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func contactFromModel(m ContactModel) domain.Contact {
	return domain.Contact{
		Name:     m.Name,
		Phone:    m.Phone,
		Company:  m.Company,
		Industry: m.Industry,
	}
}
