package media

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDeduplicatesPerCustomer(t *testing.T) {
	repo := NewMemoryRepo()
	objects := NewMemoryStore()
	svc := NewService(repo, objects, nil)
	ctx := context.Background()

	data := []byte("\xff\xd8\xff\xe0fake-jpeg")
	first, err := svc.Save(ctx, Upload{CustomerID: "c1", Data: data, MIME: "image/jpeg"})
	require.NoError(t, err)
	second, err := svc.Save(ctx, Upload{CustomerID: "c1", Data: data, MIME: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.Save(ctx, Upload{CustomerID: "c2", Data: data, MIME: "image/jpeg"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Len(t, repo.Images(), 2)

	assert.True(t, strings.HasPrefix(first.ObjectKey, "images/c1/"+first.SHA256[:2]+"/"))
	assert.True(t, strings.HasSuffix(first.ObjectKey, ".jpg"))

	stored, err := svc.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestSaveRejectsEmptyAndOversized(t *testing.T) {
	svc := NewService(NewMemoryRepo(), NewMemoryStore(), nil)
	_, err := svc.Save(context.Background(), Upload{CustomerID: "c1"})
	assert.ErrorIs(t, err, ErrEmptyPayload)

	svc.maxBytes = 4
	_, err = svc.Save(context.Background(), Upload{CustomerID: "c1", Data: []byte("12345")})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveFallsBackToFilenameMime(t *testing.T) {
	svc := NewService(NewMemoryRepo(), NewMemoryStore(), nil)
	img, err := svc.Save(context.Background(), Upload{CustomerID: "c1", Data: []byte("png-bytes"), Filename: "car.PNG"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)
	assert.True(t, strings.HasSuffix(img.ObjectKey, ".png"))
}

func TestDecodeBase64(t *testing.T) {
	raw := []byte("hello image")
	enc := base64.StdEncoding.EncodeToString(raw)

	data, mime, err := DecodeBase64(enc)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Empty(t, mime)

	data, mime, err = DecodeBase64("data:image/jpeg;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, "image/jpeg", mime)

	_, _, err = DecodeBase64("  ")
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, _, err = DecodeBase64("***")
	assert.Error(t, err)
}
