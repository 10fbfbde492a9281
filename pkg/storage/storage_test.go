package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()

	file, err := NewFile(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	sqlite, err := NewSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if err := sqlite.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	stores := map[string]Storage{
		BackendMemory: NewMemory(),
		BackendFile:   file,
		BackendSQLite: sqlite,
		BackendRedis:  NewRedisWithClient(rdb, "test", nil),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetItem(ctx, "user"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetItem on empty store: got %v, want ErrNotFound", err)
			}

			if err := s.SetItem(ctx, "user", []byte(`{"token":"a"}`)); err != nil {
				t.Fatalf("SetItem: %v", err)
			}
			got, err := s.GetItem(ctx, "user")
			if err != nil {
				t.Fatalf("GetItem: %v", err)
			}
			if string(got) != `{"token":"a"}` {
				t.Errorf("GetItem = %s", got)
			}

			if err := s.SetItem(ctx, "user", []byte(`{"token":"b"}`)); err != nil {
				t.Fatalf("SetItem overwrite: %v", err)
			}
			got, _ = s.GetItem(ctx, "user")
			if string(got) != `{"token":"b"}` {
				t.Errorf("GetItem after overwrite = %s", got)
			}

			if err := s.RemoveItem(ctx, "user"); err != nil {
				t.Fatalf("RemoveItem: %v", err)
			}
			if _, err := s.GetItem(ctx, "user"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetItem after remove: got %v, want ErrNotFound", err)
			}
			if err := s.RemoveItem(ctx, "user"); err != nil {
				t.Errorf("RemoveItem on missing key: %v", err)
			}
		})
	}
}

func TestFile_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f, err := NewFile(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetItem(context.Background(), "user", []byte(`{}`)); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "user.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFile_InvalidKey(t *testing.T) {
	f, _ := NewFile(t.TempDir(), nil)
	if err := f.SetItem(context.Background(), "../escape", []byte(`{}`)); err == nil {
		t.Error("expected error for path-like key")
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "storage.db")

	s, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SetItem(ctx, "user", []byte(`{"token":"x"}`)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if err := s2.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := s2.GetItem(ctx, "user")
	if err != nil {
		t.Fatalf("GetItem after reopen: %v", err)
	}
	if string(got) != `{"token":"x"}` {
		t.Errorf("GetItem = %s", got)
	}
}

func TestRedis_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(rdb, "", nil)
	defer r.Close()

	if err := r.SetItem(context.Background(), "user", []byte("v")); err != nil {
		t.Fatal(err)
	}
	got, err := mr.Get("startupval:user")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != "v" {
		t.Errorf("stored value = %q", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"memory", Options{Backend: BackendMemory}, false},
		{"file", Options{Backend: BackendFile, Path: t.TempDir()}, false},
		{"sqlite", Options{Backend: BackendSQLite, Path: ":memory:"}, false},
		{"redis", Options{Backend: BackendRedis, RedisAddr: mr.Addr()}, false},
		{"unknown", Options{Backend: "etcd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.opts, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer s.Close()
			if err := s.SetItem(ctx, "k", []byte("v")); err != nil {
				t.Errorf("SetItem: %v", err)
			}
		})
	}
}
