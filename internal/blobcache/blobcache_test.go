package blobcache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/debemdeboas/postdeck/internal/db"
	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/debemdeboas/postdeck/internal/util/compression"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func init() {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))
}

func TestKey(t *testing.T) {
	id := model.AssetID("0f6c")
	tests := map[Kind]string{
		KindFile:      "file_0f6c",
		KindOriginal:  "original_0f6c",
		KindThumbnail: "thumbnail_0f6c",
	}
	for kind, want := range tests {
		if got := Key(kind, id); got != want {
			t.Errorf("Key(%s) = %q, want %q", kind, got, want)
		}
	}
}

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	payload := bytes.Repeat([]byte{0xff, 0xd8, 0x00, 0x10}, 512)

	t.Run("missing", func(t *testing.T) {
		data, ok, err := c.Get(ctx, "file_missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok || data != nil {
			t.Errorf("Expected miss, got ok=%v len=%d", ok, len(data))
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := c.Set(ctx, "file_a", payload); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		data, ok, err := c.Get(ctx, "file_a")
		if err != nil || !ok {
			t.Fatalf("Get failed: ok=%v err=%v", ok, err)
		}
		if !bytes.Equal(data, payload) {
			t.Error("Stored bytes differ from the input")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := c.Set(ctx, "file_a", []byte("second")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		data, _, _ := c.Get(ctx, "file_a")
		if string(data) != "second" {
			t.Errorf("Expected overwritten value, got %q", data)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := c.Delete(ctx, "file_a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := c.Get(ctx, "file_a"); ok {
			t.Error("Expected key to be gone after Delete")
		}
		if err := c.Delete(ctx, "file_a"); err != nil {
			t.Errorf("Deleting a missing key should not fail: %v", err)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		for _, key := range []string{"", "../escape", "a/b", ".lock"} {
			if err := c.Set(ctx, key, payload); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Set(%q): expected ErrInvalidKey, got %v", key, err)
			}
		}
	})
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseCache(t, m)

	t.Run("returned slice is a copy", func(t *testing.T) {
		ctx := context.Background()
		src := []byte("abc")
		m.Set(ctx, "original_x", src)
		src[0] = 'z'
		got, _, _ := m.Get(ctx, "original_x")
		if string(got) != "abc" {
			t.Errorf("Cache aliased caller slice: %q", got)
		}
		got[1] = 'z'
		again, _, _ := m.Get(ctx, "original_x")
		if string(again) != "abc" {
			t.Errorf("Cache aliased returned slice: %q", again)
		}
	})
}

func TestSQLite(t *testing.T) {
	database := db.NewSQLite(":memory:")
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	s := NewSQLite(database, nil)
	exerciseCache(t, s)

	t.Run("stores compressed bytes and hash", func(t *testing.T) {
		ctx := context.Background()
		payload := bytes.Repeat([]byte("compressible "), 1000)
		if err := s.Set(ctx, "file_big", payload); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		var stored []byte
		var hash string
		if err := database.QueryRow(ctx, `SELECT data, content_hash FROM blobs WHERE key = ?`, "file_big").Scan(&stored, &hash); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(stored) >= len(payload) {
			t.Errorf("Expected compressed storage, got %d >= %d", len(stored), len(payload))
		}
		if hash == "" {
			t.Error("Expected content hash to be stored")
		}
	})
}

func TestFS(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFS(dir, compression.GzipCompressor{})
	if err != nil {
		t.Fatalf("OpenFS failed: %v", err)
	}
	defer f.Close()

	exerciseCache(t, f)

	t.Run("file per key", func(t *testing.T) {
		ctx := context.Background()
		if err := f.Set(ctx, "file_disk", []byte("bytes")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "file_disk")); err != nil {
			t.Errorf("Expected file on disk: %v", err)
		}
	})

	t.Run("second open is locked out", func(t *testing.T) {
		_, err := OpenFS(dir, nil)
		if !errors.Is(err, ErrLocked) {
			t.Errorf("Expected ErrLocked, got %v", err)
		}
	})
}

func TestFSReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := OpenFS(dir, nil)
	if err != nil {
		t.Fatalf("OpenFS failed: %v", err)
	}
	if err := first.Set(ctx, "original_keep", []byte("survives restart")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := OpenFS(dir, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close()

	data, ok, err := second.Get(ctx, "original_keep")
	if err != nil || !ok {
		t.Fatalf("Expected value after reopen, ok=%v err=%v", ok, err)
	}
	if string(data) != "survives restart" {
		t.Errorf("Got %q", data)
	}
}

func TestRedisDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	r := NewRedis(client, "", time.Hour, nil)
	if r.prefix != DefaultRedisPrefix {
		t.Errorf("Expected default prefix, got %q", r.prefix)
	}
	if got := r.key("file_a"); got != DefaultRedisPrefix+"file_a" {
		t.Errorf("Unexpected redis key %q", got)
	}
	if _, ok := r.compressor.(compression.ZstdCompressor); !ok {
		t.Errorf("Expected zstd compressor by default, got %T", r.compressor)
	}
	if err := r.Set(context.Background(), "../bad", nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected key validation before any network call, got %v", err)
	}
}

func TestRedisServer(t *testing.T) {
	addr := os.Getenv("POSTDECK_TEST_REDIS")
	if addr == "" {
		t.Skip("POSTDECK_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	exerciseCache(t, NewRedis(client, "postdeck-test:"+t.Name()+":", time.Minute, nil))
}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = (*SQLite)(nil)
	_ Cache = (*FS)(nil)
	_ Cache = (*Redis)(nil)
)
