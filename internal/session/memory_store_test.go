package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1 * time.Hour)

	if err := store.Put(ctx, "user-1", "token-a"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("expected entry to be found")
	}
	if got != "token-a" {
		t.Errorf("Get() = %q, want %q", got, "token-a")
	}
}

func TestMemoryStore_Get_Absent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1 * time.Hour)

	_, found, err := store.Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("expected entry to be absent")
	}
}

func TestMemoryStore_Put_OverwriteInvalidatesOldValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1 * time.Hour)

	if err := store.Put(ctx, "user-1", "token-v1"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "user-1", "token-v2"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// 上書き後は旧値のValidateがfalse、新値がtrueになること
	ok, err := store.Validate(ctx, "user-1", "token-v1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if ok {
		t.Error("old value should not validate after overwrite")
	}

	ok, err = store.Validate(ctx, "user-1", "token-v2")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !ok {
		t.Error("new value should validate after overwrite")
	}
}

func TestMemoryStore_Delete_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1 * time.Hour)

	if err := store.Put(ctx, "user-1", "token-a"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// 存在しないエントリの削除もエラーにならないこと
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}

	_, found, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("expected entry to be deleted")
	}
}

func TestMemoryStore_Validate_AbsentEntry_ReturnsFalse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1 * time.Hour)

	ok, err := store.Validate(ctx, "nobody", "any-token")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if ok {
		t.Error("absent entry should not validate")
	}
}

func TestMemoryStore_Get_ExpiredEntry_TreatedAsAbsent(t *testing.T) {
	ctx := context.Background()

	current := time.Now()
	store := NewMemoryStore(1 * time.Hour).WithClock(func() time.Time { return current })

	if err := store.Put(ctx, "user-1", "token-a"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// TTL経過後は存在しない扱いになること
	current = current.Add(2 * time.Hour)

	_, found, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("expired entry should be treated as absent")
	}
}

func TestMemoryStore_Put_ResetsTTLOnOverwrite(t *testing.T) {
	ctx := context.Background()

	current := time.Now()
	store := NewMemoryStore(1 * time.Hour).WithClock(func() time.Time { return current })

	if err := store.Put(ctx, "user-1", "token-v1"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// 50分後に上書きするとTTLが再設定され、さらに50分後も有効なこと
	current = current.Add(50 * time.Minute)
	if err := store.Put(ctx, "user-1", "token-v2"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	current = current.Add(50 * time.Minute)
	got, found, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("entry should still be alive after TTL reset")
	}
	if got != "token-v2" {
		t.Errorf("Get() = %q, want %q", got, "token-v2")
	}
}
