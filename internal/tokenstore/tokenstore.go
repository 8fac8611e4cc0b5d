// Package tokenstore keeps signed-in sessions in SQLite with the tokens sealed by AES-256-GCM.
package tokenstore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/readshelf/internal/crypto"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultKeyFileName is the default name for the generated key file
const DefaultKeyFileName = ".readshelf-session-key"

// ErrSessionNotFound is returned when no session is stored for an account.
var ErrSessionNotFound = errors.New("no stored session")

// TokenStore persists sessions for the CLI and the background worker.
type TokenStore struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

// Config holds configuration for the token store
type Config struct {
	// DatabasePath is the path to the SQLite database file
	DatabasePath string

	// EncryptionKey is the base64-encoded 32-byte key. Takes precedence over Passphrase.
	EncryptionKey string

	// Passphrase is turned into a key with Argon2id when EncryptionKey is empty.
	// The salt is kept in the session database.
	Passphrase string

	// KeyFilePath is used when neither key nor passphrase is given.
	// A key is generated on first use. Defaults to ~/.readshelf-session-key
	KeyFilePath string
}

// keySalt holds the Argon2id salt for passphrase-derived keys. There is at
// most one row.
type keySalt struct {
	ID   uint   `gorm:"primaryKey"`
	Salt []byte `gorm:"not null"`
}

func (keySalt) TableName() string {
	return "key_salt"
}

// New opens (and migrates) the session database.
func New(cfg Config) (*TokenStore, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open session database")
	}

	if err := db.AutoMigrate(&entities.StoredSession{}, &keySalt{}); err != nil {
		closeDB(db)
		return nil, errors.Wrap(err, "migrate session schema")
	}

	encryptor, err := resolveEncryptor(cfg, db)
	if err != nil {
		closeDB(db)
		return nil, errors.Wrap(err, "resolve encryption key")
	}

	return &TokenStore{
		db:        db,
		encryptor: encryptor,
	}, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func resolveEncryptor(cfg Config, db *gorm.DB) (*crypto.Encryptor, error) {
	if cfg.EncryptionKey != "" {
		return crypto.NewEncryptorFromBase64(cfg.EncryptionKey)
	}
	if cfg.Passphrase != "" {
		salt, err := loadOrCreateSalt(db)
		if err != nil {
			return nil, err
		}
		return crypto.NewEncryptorFromPassphrase(cfg.Passphrase, salt)
	}

	keyFilePath := GetKeyFilePath(cfg.KeyFilePath)
	if data, err := os.ReadFile(keyFilePath); err == nil {
		return crypto.NewEncryptorFromBase64(strings.TrimSpace(string(data)))
	}

	newKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return nil, errors.Wrapf(err, "save encryption key to %s", keyFilePath)
	}
	logger.New().Info("generated session encryption key", logger.Data{"path": keyFilePath})

	return crypto.NewEncryptorFromBase64(newKey)
}

// loadOrCreateSalt returns the database's salt, generating it on first use.
func loadOrCreateSalt(db *gorm.DB) ([]byte, error) {
	var row keySalt
	err := db.First(&row).Error
	if err == nil {
		return row.Salt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load key salt")
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := db.Create(&keySalt{Salt: salt}).Error; err != nil {
		return nil, errors.Wrap(err, "save key salt")
	}
	return salt, nil
}

// SaveSession stores or replaces the session of an account.
func (s *TokenStore) SaveSession(session *entities.Session) error {
	encAccess, err := s.encryptor.Encrypt(session.AccessToken)
	if err != nil {
		return errors.Wrap(err, "encrypt access token")
	}
	encRefresh, err := s.encryptor.Encrypt(session.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "encrypt refresh token")
	}

	record := &entities.StoredSession{
		Account:      session.Account,
		UserID:       session.UserID,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		TokenType:    session.TokenType,
		ExpiresAt:    session.ExpiresAt,
	}

	result := s.db.Where("account = ?", session.Account).
		Assign(map[string]interface{}{
			"user_id":       session.UserID,
			"access_token":  encAccess,
			"refresh_token": encRefresh,
			"token_type":    session.TokenType,
			"expires_at":    session.ExpiresAt,
			"updated_at":    time.Now(),
		}).
		FirstOrCreate(record)
	if result.Error != nil {
		return errors.Wrap(result.Error, "save session")
	}
	return nil
}

// GetSession returns the decrypted session of an account or ErrSessionNotFound.
func (s *TokenStore) GetSession(account string) (*entities.Session, error) {
	var record entities.StoredSession
	err := s.db.Where("account = ?", account).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "get session")
	}
	return s.decrypt(&record)
}

// LatestSession returns the most recently updated session (single-user setups).
func (s *TokenStore) LatestSession() (*entities.Session, error) {
	var record entities.StoredSession
	err := s.db.Order("updated_at DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "get latest session")
	}
	return s.decrypt(&record)
}

// ListSessions returns all stored sessions without decrypting them.
func (s *TokenStore) ListSessions() ([]entities.StoredSession, error) {
	var records []entities.StoredSession
	if err := s.db.Order("account").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	return records, nil
}

// DeleteSession removes an account's session permanently.
func (s *TokenStore) DeleteSession(account string) error {
	err := s.db.Unscoped().Where("account = ?", account).Delete(&entities.StoredSession{}).Error
	if err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// MarkUsed updates the last_used_at timestamp.
func (s *TokenStore) MarkUsed(account string) error {
	err := s.db.Model(&entities.StoredSession{}).
		Where("account = ?", account).
		Update("last_used_at", time.Now()).Error
	if err != nil {
		return errors.Wrap(err, "update last used")
	}
	return nil
}

// UpdateAfterRefresh stores the tokens returned by a refresh. An empty
// refresh token keeps the previous one.
func (s *TokenStore) UpdateAfterRefresh(account, accessToken, refreshToken string, expiresAt *time.Time) error {
	encAccess, err := s.encryptor.Encrypt(accessToken)
	if err != nil {
		return errors.Wrap(err, "encrypt access token")
	}

	updates := map[string]interface{}{
		"access_token":      encAccess,
		"expires_at":        expiresAt,
		"last_refreshed_at": time.Now(),
	}
	if refreshToken != "" {
		encRefresh, err := s.encryptor.Encrypt(refreshToken)
		if err != nil {
			return errors.Wrap(err, "encrypt refresh token")
		}
		updates["refresh_token"] = encRefresh
	}

	result := s.db.Model(&entities.StoredSession{}).
		Where("account = ?", account).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "update session")
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *TokenStore) decrypt(record *entities.StoredSession) (*entities.Session, error) {
	access, err := s.encryptor.Decrypt(record.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt access token")
	}
	refresh, err := s.encryptor.Decrypt(record.RefreshToken)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt refresh token")
	}

	return &entities.Session{
		Account:      record.Account,
		UserID:       record.UserID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    record.TokenType,
		ExpiresAt:    record.ExpiresAt,
	}, nil
}

// Close closes the database connection
func (s *TokenStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// GetKeyFilePath returns the path to the key file being used
func GetKeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFileName
	}
	return filepath.Join(homeDir, DefaultKeyFileName)
}
