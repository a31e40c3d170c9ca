// persist.go — FilePersister: сессия в файле, зашифрованном AES-256-GCM.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/membergate/internal/domain/model"
)

// fileData — содержимое файла сессии до шифрования.
type fileData struct {
	UserID        string `json:"uid"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	AccessToken   string `json:"access_token"`  //nolint:gosec // G117: шифруется перед записью
	RefreshToken  string `json:"refresh_token"` //nolint:gosec // G117: шифруется перед записью
	// ExpiresAt — время истечения access token (Unix timestamp).
	ExpiresAt int64 `json:"expires_at"`
}

// FilePersister хранит сессию в зашифрованном файле.
type FilePersister struct {
	path string
	gcm  cipher.AEAD
}

// NewFilePersister создаёт хранилище сессии в файле path.
// secret — base64 32-байтового ключа или произвольная строка (хешируется SHA-256).
// Если secret пустой, ключ генерируется один раз и хранится рядом в path+".key".
func NewFilePersister(path, secret string) (*FilePersister, error) {
	if path == "" {
		return nil, errors.New("не задан путь к файлу сессии")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("создание каталога сессии: %w", err)
	}

	keyBytes, err := sessionKey(path+".key", secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &FilePersister{path: path, gcm: gcm}, nil
}

// sessionKey возвращает 32-байтовый ключ шифрования.
func sessionKey(keyPath, secret string) ([]byte, error) {
	if secret != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(secret)
		if err != nil || len(keyBytes) != 32 {
			h := sha256.Sum256([]byte(secret))
			return h[:], nil
		}
		return keyBytes, nil
	}

	raw, err := os.ReadFile(keyPath)
	if err == nil {
		keyBytes, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil || len(keyBytes) != 32 {
			return nil, fmt.Errorf("повреждён ключ сессии %s", keyPath)
		}
		return keyBytes, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("чтение ключа сессии: %w", err)
	}

	keyBytes := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
		return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
	}
	if err := writeFileAtomic(keyPath, []byte(base64.StdEncoding.EncodeToString(keyBytes))); err != nil {
		return nil, fmt.Errorf("запись ключа сессии: %w", err)
	}
	return keyBytes, nil
}

// Save шифрует и записывает сессию.
func (p *FilePersister) Save(creds *model.Credentials) error {
	if creds == nil || creds.Identity == nil {
		return p.Clear()
	}

	plaintext, err := json.Marshal(fileData{
		UserID:        creds.Identity.ID,
		Email:         creds.Identity.Email,
		EmailVerified: creds.Identity.EmailVerified,
		AccessToken:   creds.AccessToken,
		RefreshToken:  creds.RefreshToken,
		ExpiresAt:     creds.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	// Уникальный nonce для каждой записи (prepended к ciphertext)
	nonce := make([]byte, p.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	ciphertext := p.gcm.Seal(nonce, nonce, plaintext, nil)

	return writeFileAtomic(p.path, []byte(base64.URLEncoding.EncodeToString(ciphertext)))
}

// Load читает и дешифрует сессию. Если файла нет — nil, nil.
func (p *FilePersister) Load() (*model.Credentials, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("чтение файла сессии: %w", err)
	}

	ciphertext, err := base64.URLEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := p.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := p.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var data fileData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}

	return &model.Credentials{
		Identity: &model.Identity{
			ID:            data.UserID,
			Email:         data.Email,
			EmailVerified: data.EmailVerified,
		},
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    time.Unix(data.ExpiresAt, 0),
	}, nil
}

// Clear удаляет файл сессии. Отсутствие файла — не ошибка.
func (p *FilePersister) Clear() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("удаление файла сессии: %w", err)
	}
	return nil
}

// writeFileAtomic записывает файл с правами 0600 через временный файл и rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // после rename файла уже нет

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
