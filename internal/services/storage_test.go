package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreUploadImage(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBlobStore(context.Background(), "local", "", "", dir, "http://localhost:8080/evidence/")
	if err != nil {
		t.Fatalf("NewBlobStore failed: %v", err)
	}

	data := []byte{0xff, 0xd8, 0xff}
	url, err := store.UploadImage(context.Background(), data, "cheating/7/42/abc.jpg")
	if err != nil {
		t.Fatalf("UploadImage failed: %v", err)
	}

	if url != "http://localhost:8080/evidence/cheating/7/42/abc.jpg" {
		t.Errorf("Unexpected URL %q", url)
	}

	written, err := os.ReadFile(filepath.Join(dir, "cheating", "7", "42", "abc.jpg"))
	if err != nil {
		t.Fatalf("Evidence file not written: %v", err)
	}
	if string(written) != string(data) {
		t.Error("Written bytes do not match uploaded data")
	}
}

func TestNewBlobStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewBlobStore(context.Background(), "ftp", "", "", "", ""); err == nil {
		t.Fatal("Expected error for unknown storage type")
	}
}

func TestNewBlobStoreS3RequiresBucket(t *testing.T) {
	if _, err := NewBlobStore(context.Background(), "s3", "", "ap-northeast-2", "", ""); err == nil {
		t.Fatal("Expected error when bucket is missing")
	}
}
