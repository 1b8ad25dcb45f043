package media

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultMaxBytes = 10 << 20

// Service persists inbound photos, deduplicating identical bytes per customer.
type Service struct {
	repo     Repository
	objects  ObjectStore
	log      *slog.Logger
	maxBytes int64
	clock    func() time.Time
}

func NewService(repo Repository, objects ObjectStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		objects:  objects,
		log:      log.With(slog.String("service", "media")),
		maxBytes: defaultMaxBytes,
		clock:    time.Now,
	}
}

// Upload is a decoded inbound photo.
type Upload struct {
	CustomerID string
	Data       []byte
	Filename   string
	MIME       string
}

// Save stores the upload and returns its metadata. A photo already stored for
// the same customer is returned as is.
func (s *Service) Save(ctx context.Context, up Upload) (Image, error) {
	if len(up.Data) == 0 {
		return Image{}, ErrEmptyPayload
	}
	if int64(len(up.Data)) > s.maxBytes {
		return Image{}, ErrTooLarge
	}
	sum := sha256.Sum256(up.Data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.repo.FindByHash(ctx, up.CustomerID, hash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Image{}, fmt.Errorf("lookup image: %w", err)
	}

	mime := strings.TrimSpace(up.MIME)
	if mime == "" || mime == "application/octet-stream" {
		mime = mimeFromExtension(filepath.Ext(up.Filename))
	}
	if mime == "" {
		mime = http.DetectContentType(up.Data)
	}

	key := objectKey(up.CustomerID, hash, extensionFromMime(mime))
	if err := s.objects.Put(ctx, key, up.Data, mime); err != nil {
		return Image{}, fmt.Errorf("store object: %w", err)
	}

	img := Image{
		ID:           uuid.NewString(),
		CustomerID:   up.CustomerID,
		ObjectKey:    key,
		OriginalName: up.Filename,
		MIME:         mime,
		Size:         int64(len(up.Data)),
		SHA256:       hash,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, img); err != nil {
		return Image{}, fmt.Errorf("insert image: %w", err)
	}
	s.log.Info("image stored",
		slog.String("customer_id", up.CustomerID),
		slog.String("image_id", img.ID),
		slog.Int64("size", img.Size))
	return img, nil
}

// Load returns the stored bytes for an image.
func (s *Service) Load(ctx context.Context, img Image) ([]byte, error) {
	return s.objects.Get(ctx, img.ObjectKey)
}

// DecodeBase64 accepts raw base64 or a data URL.
func DecodeBase64(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", ErrEmptyPayload
	}
	mime := ""
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("media: malformed data url")
		}
		header := payload[len("data:"):comma]
		mime, _, _ = strings.Cut(header, ";")
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("media: decode base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyPayload
	}
	return data, mime, nil
}

func objectKey(customerID, hash, ext string) string {
	return "images/" + customerID + "/" + hash[:2] + "/" + hash + ext
}

func mimeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	default:
		return ""
	}
}

func extensionFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ".bin"
	}
}
