package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewLocalFileStorage(base, zap.NewNop())

	key := "7c9e6679-7425-40de-944b-e07fc1f90ae7/files/0.pdf"
	require.NoError(t, s.Save(ctx, key, []byte("%PDF-1.4")))
	assert.True(t, s.Exists(ctx, key))
	assert.Equal(t, filepath.Join(base, "7c9e6679-7425-40de-944b-e07fc1f90ae7", "files", "0.pdf"), s.GetFullPath(key))

	content, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)

	_, err = os.Stat(s.GetFullPath(key) + ".part")
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Save(ctx, key, []byte("v2")))
	content, err = s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), content)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	assert.False(t, s.Exists(ctx, key))

	_, err = s.Read(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalFileStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())

	for _, key := range []string{"", "../outside.txt", "a/../../outside.txt", `..\outside.txt`, "/"} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, s.Save(ctx, key, []byte("x")))
			assert.False(t, s.Exists(ctx, key))
		})
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"id/files/0.pdf", "id/files/0.pdf"},
		{"/id/files/0.pdf", "id/files/0.pdf"},
		{"id//messages/./approval-email.msg", "id/messages/approval-email.msg"},
		{`id\presentations\presentation.pptx`, "id/presentations/presentation.pptx"},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.key)
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3FileStorage_Keys(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds: credentials.NewStaticV4("key", "secret", ""),
	})
	require.NoError(t, err)
	s := &S3FileStorage{client: client, bucket: "reimbursements", logger: zap.NewNop()}

	assert.Equal(t, "s3://reimbursements/id/files/0.pdf", s.GetFullPath("id/files/0.pdf"))
	assert.Error(t, s.Save(context.Background(), "../escape", []byte("x")))
	assert.False(t, s.Exists(context.Background(), ""))

	assert.Equal(t, "application/pdf", contentType("id/files/0.pdf"))
	assert.Equal(t, "application/vnd.ms-outlook", contentType("id/messages/approval-email.msg"))
	assert.Equal(t, "application/octet-stream", contentType("id/files/0"))
}
