package storage_test

import (
	"errors"
	"fmt"
	"testing"

	"storesync/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Bucket:    "records",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTP", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{Endpoint: "http://localhost:9000"})
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{Endpoint: "https://s3.amazonaws.com", UseSSL: true})
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EmptyEndpoint", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{Endpoint: "https://"})
		assert.Error(t, err)
		assert.Nil(t, client)
	})
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"NoSuchKey", minio.ErrorResponse{Code: "NoSuchKey"}, true},
		{"NoSuchBucket", minio.ErrorResponse{Code: "NoSuchBucket"}, true},
		{"Wrapped", fmt.Errorf("stat: %w", minio.ErrorResponse{Code: "NoSuchKey"}), true},
		{"AccessDenied", minio.ErrorResponse{Code: "AccessDenied"}, false},
		{"Other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.IsNotFound(tt.err))
		})
	}
}
