package repository

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

type SettingsRepository struct {
	DB  *sql.DB
	key []byte
}

// NewSettingsRepository derives the credential encryption key from keySource
// with scrypt. Not meant to resist an attacker with full database access,
// but keeps the provider password out of plaintext rows.
func NewSettingsRepository(database *sql.DB, keySource string) (*SettingsRepository, error) {
	key, err := scrypt.Key([]byte(keySource), []byte("sdlv-booker-salt"), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("deriving credentials key: %w", err)
	}
	return &SettingsRepository{DB: database, key: key}, nil
}

func (r *SettingsRepository) Get(key, defaultValue string) (string, error) {
	var value string
	err := r.DB.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultValue, nil
		}
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.DB.Exec(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// Credentials are the provider account used for every booking.
type Credentials struct {
	Email    string
	Password string
}

func (r *SettingsRepository) SetCredentials(email, password string) error {
	if err := r.Set("doinsport_email", email); err != nil {
		return err
	}
	enc, err := r.encrypt(password)
	if err != nil {
		return fmt.Errorf("encrypting password: %w", err)
	}
	return r.Set("doinsport_password", enc)
}

// GetCredentials returns nil when no account is configured yet.
func (r *SettingsRepository) GetCredentials() (*Credentials, error) {
	email, err := r.Get("doinsport_email", "")
	if err != nil {
		return nil, err
	}
	encPassword, err := r.Get("doinsport_password", "")
	if err != nil {
		return nil, err
	}
	if email == "" || encPassword == "" {
		return nil, nil
	}

	// Legacy plaintext values carry no iv:tag:ciphertext structure.
	password := encPassword
	if strings.Contains(encPassword, ":") {
		if dec, err := r.decrypt(encPassword); err == nil {
			password = dec
		}
	}
	return &Credentials{Email: email, Password: password}, nil
}

func (r *SettingsRepository) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]
	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv), hex.EncodeToString(tag), hex.EncodeToString(ciphertext)), nil
}

func (r *SettingsRepository) decrypt(data string) (string, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed encrypted value")
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
