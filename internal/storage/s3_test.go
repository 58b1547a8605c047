package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/loginscraper/internal/config"
)

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"https://acct.r2.cloudflarestorage.com/": "acct.r2.cloudflarestorage.com",
		"http://localhost:9000":                  "localhost:9000",
		"s3.eu-west-1.amazonaws.com/bucket/path": "s3.eu-west-1.amazonaws.com",
		"":                                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeEndpoint(in), in)
	}
}

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType("s3.amazonaws.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType(""))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("localhost:9000"))
}

func TestNewStorage(t *testing.T) {
	st, err := NewStorage(&config.StorageConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "scrapes",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/jobs/job_1.html", st.GetURL("jobs/job_1.html"))

	s3st, ok := st.(*S3Storage)
	require.True(t, ok)
	assert.Equal(t, StorageTypeS3Compatible, s3st.storeType)

	_, err = NewStorage(&config.StorageConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err, "bucket is required")
}

func TestGetURLWithoutPublicPrefix(t *testing.T) {
	st, err := NewS3Storage(&S3Config{Bucket: "scrapes", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Empty(t, st.GetURL("jobs/job_1.html"))
}
