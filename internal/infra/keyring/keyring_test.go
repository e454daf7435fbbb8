package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetDSN(t *testing.T) {
	gokeyring.MockInit()

	dsn := "postgres://learner@localhost:5432/learnquest?sslmode=disable"
	if err := SetDSN(dsn); err != nil {
		t.Fatalf("SetDSN() failed: %v", err)
	}

	got, err := GetDSN()
	if err != nil {
		t.Fatalf("GetDSN() failed: %v", err)
	}
	if got != dsn {
		t.Errorf("GetDSN() = %q, want %q", got, dsn)
	}
}

func TestSetDSNEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := SetDSN(""); err == nil {
		t.Error("SetDSN(\"\") should fail")
	}
}

func TestGetDSNNotFound(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteDSN()

	if _, err := GetDSN(); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDSN() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteDSN(t *testing.T) {
	gokeyring.MockInit()

	if err := SetDSN("postgres://learner@localhost/learnquest"); err != nil {
		t.Fatalf("SetDSN() failed: %v", err)
	}
	if err := DeleteDSN(); err != nil {
		t.Fatalf("DeleteDSN() failed: %v", err)
	}
	if _, err := GetDSN(); !errors.Is(err, ErrNotFound) {
		t.Errorf("after DeleteDSN(), GetDSN() error = %v, want %v", err, ErrNotFound)
	}
	if err := DeleteDSN(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteDSN() error = %v, want %v", err, ErrNotFound)
	}
}

func TestUnavailableKeyring(t *testing.T) {
	gokeyring.MockInitWithError(errors.New("no dbus session"))
	defer gokeyring.MockInit()

	if _, err := GetDSN(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("GetDSN() error = %v, want %v", err, ErrUnavailable)
	}
	if IsAvailable() {
		t.Error("IsAvailable() = true with a failing keyring")
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()
	if !IsAvailable() {
		t.Error("IsAvailable() = false, want true in mock mode")
	}
}
