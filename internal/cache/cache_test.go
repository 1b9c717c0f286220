package cache

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache[string, []byte]()

	t.Run("Set and Get", func(t *testing.T) {
		cache.Set("file_a", []byte("a"))

		got, exists := cache.Get("file_a")
		if !exists {
			t.Fatal("Expected key to exist")
		}
		if string(got) != "a" {
			t.Errorf("Expected %q, got %q", "a", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		if _, exists := cache.Get("missing"); exists {
			t.Error("Expected key to not exist")
		}
	})

	t.Run("Overwrite existing key", func(t *testing.T) {
		cache.Set("file_a", []byte("b"))
		got, _ := cache.Get("file_a")
		if string(got) != "b" {
			t.Errorf("Expected overwritten value, got %q", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		cache.Delete("file_a")
		if _, exists := cache.Get("file_a"); exists {
			t.Error("Expected key to be deleted")
		}
		// Deleting a missing key is a no-op.
		cache.Delete("file_a")
	})
}

func TestCache_ClearAndSetTo(t *testing.T) {
	cache := NewCache[int, string]()
	cache.Set(1, "one")
	cache.Set(2, "two")

	if cache.Len() != 2 {
		t.Errorf("Expected 2 items, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", cache.Len())
	}

	cache.SetTo(map[int]string{3: "three"})
	if v, ok := cache.Get(3); !ok || v != "three" {
		t.Errorf("Expected SetTo contents, got %q, %v", v, ok)
	}
	if _, ok := cache.Get(1); ok {
		t.Error("Expected SetTo to replace previous contents")
	}
}

func TestCache_Keys(t *testing.T) {
	cache := NewCache[string, int]()
	for i, k := range []string{"original_b", "file_a", "file_c"} {
		cache.Set(k, i)
	}

	keys := cache.Keys(strings.Compare)
	want := []string{"file_a", "file_c", "original_b"}
	if !slices.Equal(keys, want) {
		t.Errorf("Expected %v, got %v", want, keys)
	}

	if len(cache.Keys(nil)) != 3 {
		t.Error("Expected unsorted keys to include every entry")
	}
}

func TestCache_Concurrency(t *testing.T) {
	cache := NewCache[string, int]()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k-%d-%d", g, i%10)
				cache.Set(key, i)
				cache.Get(key)
				if i%7 == 0 {
					cache.Delete(key)
				}
				cache.Keys(nil)
			}
		}(g)
	}
	wg.Wait()

	if cache.Len() > 80 {
		t.Errorf("Expected at most 80 keys, got %d", cache.Len())
	}
}

func BenchmarkCache_Set(b *testing.B) {
	cache := NewCache[string, int]()
	for i := 0; i < b.N; i++ {
		cache.Set(fmt.Sprintf("key-%d", i%1000), i)
	}
}

func BenchmarkCache_Get(b *testing.B) {
	cache := NewCache[string, int]()
	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(fmt.Sprintf("key-%d", i%1000))
	}
}
