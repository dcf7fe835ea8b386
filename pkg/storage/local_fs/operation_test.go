package local_fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/haierkeys/fast-backup-service/pkg/code"
)

func TestLocalFS_WriteRead(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	client, err := NewClient(&Config{SavePath: tempDir})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	key := "backups/backup_1.json"
	content := []byte(`{"id":"backup_1"}`)

	if err := client.Write(ctx, key, content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "backups", "backup_1.json")); err != nil {
		t.Fatalf("File not found on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "backups", "backup_1.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file should be renamed away, stat err = %v", err)
	}

	got, err := client.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Content mismatch: expected %s, got %s", content, got)
	}

	info, err := client.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("Size mismatch: expected %d, got %d", len(content), info.Size)
	}
}

func TestLocalFS_ReadMissing(t *testing.T) {
	client, _ := NewClient(&Config{SavePath: t.TempDir()})

	_, err := client.Read(context.Background(), "backups/missing.json")
	if !errors.Is(err, code.ErrorStorageKeyNotFound) {
		t.Fatalf("expected ErrorStorageKeyNotFound, got %v", err)
	}

	_, err = client.Stat(context.Background(), "backups/missing.json")
	if !errors.Is(err, code.ErrorStorageKeyNotFound) {
		t.Fatalf("expected ErrorStorageKeyNotFound from Stat, got %v", err)
	}
}

func TestLocalFS_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	client, _ := NewClient(&Config{SavePath: t.TempDir(), CustomPath: "site-a"})

	for _, key := range []string{"backups/a.json", "backups/b.json.gz", "other/c.txt"} {
		if err := client.Write(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Write %s failed: %v", key, err)
		}
	}

	list, err := client.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 objects under backups/, got %d: %+v", len(list), list)
	}

	if err := client.Delete(ctx, "backups/a.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// deleting twice is not an error
	if err := client.Delete(ctx, "backups/a.json"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}

	list, _ = client.List(ctx, "backups/")
	if len(list) != 1 || list[0].Key != "backups/b.json.gz" {
		t.Errorf("unexpected objects after delete: %+v", list)
	}
}

func TestLocalFS_ListEmptyRoot(t *testing.T) {
	client, _ := NewClient(&Config{SavePath: filepath.Join(t.TempDir(), "not-created")})

	list, err := client.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List on missing root failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}
