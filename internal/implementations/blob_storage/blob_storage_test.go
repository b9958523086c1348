package blobstorage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"remindbot/internal/core/domain/attachment"
)

func TestObjectKey(t *testing.T) {
	cases := []struct {
		name   string
		suffix string
	}{
		{name: "photo_AgAD.jpg", suffix: ".jpg"},
		{name: "Report.PDF", suffix: ".pdf"},
		{name: "notes", suffix: ""},
		{name: "archive.verylongextension", suffix: ""},
	}

	keys := make(map[string]struct{})
	for _, testcase := range cases {
		t.Run(testcase.name, func(t *testing.T) {
			key := objectKey(testcase.name)

			assert := require.New(t)
			assert.True(strings.HasPrefix(key, "attachments/"))
			assert.True(strings.HasSuffix(key, testcase.suffix))
			_, seen := keys[key]
			assert.False(seen)
			keys[key] = struct{}{}
		})
	}
}

func TestContentDisposition(t *testing.T) {
	require.Equal(t, "attachment; filename*=UTF-8''my%20file.txt", contentDisposition("my file.txt"))
}

func TestMemory(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	storage := NewMemory()

	ref, err := storage.Upload(ctx, "a.txt", []byte("hello"))
	assert.Nil(err)
	content, err := storage.Download(ctx, ref)
	assert.Nil(err)
	assert.Equal([]byte("hello"), content)

	assert.Nil(storage.Delete(ctx, ref))
	_, err = storage.Download(ctx, ref)
	assert.ErrorIs(err, attachment.ErrBlobDoesNotExist)
}
