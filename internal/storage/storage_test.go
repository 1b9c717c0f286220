package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"
)

func init() {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))
}

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("upload and download", func(t *testing.T) {
		if err := s.Upload(ctx, "slides/p1/a1", []byte("jpeg bytes"), "image/jpeg"); err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		data, err := s.Download(ctx, "slides/p1/a1")
		if err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if string(data) != "jpeg bytes" {
			t.Errorf("Got %q", data)
		}
	})

	t.Run("upload replaces", func(t *testing.T) {
		if err := s.Upload(ctx, "slides/p1/a1", []byte("second"), "image/jpeg"); err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		data, _ := s.Download(ctx, "slides/p1/a1")
		if string(data) != "second" {
			t.Errorf("Expected replaced object, got %q", data)
		}
	})

	t.Run("missing object", func(t *testing.T) {
		if _, err := s.Download(ctx, "slides/p1/none"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		s.Upload(ctx, "thumbnails/p1/v1", []byte("thumb"), "image/jpeg")
		if err := s.Remove(ctx, []string{"slides/p1/a1", "thumbnails/p1/v1", "slides/p1/never-existed"}); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		for _, p := range []string{"slides/p1/a1", "thumbnails/p1/v1"} {
			if _, err := s.Download(ctx, p); !errors.Is(err, ErrNotFound) {
				t.Errorf("%s still present: %v", p, err)
			}
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		for _, p := range []string{"", "/abs", "slides/../escape", "slides//double"} {
			if err := s.Upload(ctx, p, []byte("x"), ""); err == nil {
				t.Errorf("Expected %q to be rejected", p)
			}
		}
	})
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemoryStorage()
	exerciseStorage(t, m)

	ctx := context.Background()
	m.Upload(ctx, "videos/p/v", []byte("mp4"), "video/mp4")
	m.Upload(ctx, "slides/p/a", []byte("jpg"), "image/jpeg")

	if got := m.Paths(); !slices.Equal(got, []string{"slides/p/a", "videos/p/v"}) {
		t.Errorf("Unexpected paths %v", got)
	}
	if ct, ok := m.ContentType("videos/p/v"); !ok || ct != "video/mp4" {
		t.Errorf("Unexpected content type %q", ct)
	}
}

func TestFSStorage(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStorage(root)
	if err != nil {
		t.Fatalf("NewFSStorage failed: %v", err)
	}
	exerciseStorage(t, s)

	if err := s.Upload(context.Background(), "videos/p2/v", []byte("mp4"), "video/mp4"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "videos", "p2", "v")); err != nil {
		t.Errorf("Expected object file on disk: %v", err)
	}
}

func TestNewS3StorageDefaults(t *testing.T) {
	s, err := NewS3Storage(context.Background(), S3Options{
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		BaseEndpoint:    "http://127.0.0.1:9000",
		Bucket:          "media",
	})
	if err != nil {
		t.Fatalf("NewS3Storage failed: %v", err)
	}
	if s.bucket != "media" {
		t.Errorf("Expected bucket media, got %q", s.bucket)
	}
	if region := s.client.Options().Region; region != "auto" {
		t.Errorf("Expected region auto, got %q", region)
	}
	if err := s.Upload(context.Background(), "../escape", nil, ""); err == nil {
		t.Error("Expected invalid path to be rejected before any request")
	}
}

func TestS3Storage(t *testing.T) {
	endpoint := os.Getenv("POSTDECK_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("POSTDECK_TEST_S3_ENDPOINT not set")
	}
	s, err := NewS3Storage(context.Background(), S3Options{
		AccessKeyID:     os.Getenv("POSTDECK_TEST_S3_KEY"),
		AccessKeySecret: os.Getenv("POSTDECK_TEST_S3_SECRET"),
		BaseEndpoint:    endpoint,
		Bucket:          os.Getenv("POSTDECK_TEST_S3_BUCKET"),
	})
	if err != nil {
		t.Fatalf("NewS3Storage failed: %v", err)
	}
	exerciseStorage(t, s)
}

var (
	_ Storage = (*S3Storage)(nil)
	_ Storage = (*FSStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
