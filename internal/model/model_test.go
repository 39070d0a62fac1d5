package model

import (
	"encoding/json"
	"testing"
)

func TestAccount_IsOwnedBy(t *testing.T) {
	t.Parallel()

	account := &Account{ID: "a1", UserID: "u1"}

	tests := []struct {
		name    string
		account *Account
		userID  string
		want    bool
	}{
		{"owner", account, "u1", true},
		{"other user", account, "u2", false},
		{"empty user id", account, "", false},
		{"nil account", nil, "u1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.account.IsOwnedBy(tt.userID); got != tt.want {
				t.Errorf("IsOwnedBy(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	t.Parallel()

	name := "Ada"
	if !(UserPatch{}).IsEmpty() {
		t.Error("zero UserPatch should be empty")
	}
	if (UserPatch{FirstName: &name}).IsEmpty() {
		t.Error("UserPatch with a field should not be empty")
	}
	if !(AccountPatch{}).IsEmpty() {
		t.Error("zero AccountPatch should be empty")
	}
	if (AccountPatch{Link: &name}).IsEmpty() {
		t.Error("AccountPatch with a field should not be empty")
	}
}

func TestUser_HashNeverSerialized(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(User{ID: "u1", Email: "a@b.com", PasswordHash: "$argon2id$secret"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"hash", "passwordHash", "PasswordHash"} {
		if _, ok := fields[key]; ok {
			t.Errorf("password hash leaked under %q: %s", key, data)
		}
	}
	if fields["firstName"] != nil {
		t.Errorf("unset firstName should be null, got %v", fields["firstName"])
	}
}

func TestMoney_JSON(t *testing.T) {
	t.Parallel()

	var tx Transaction
	raw := `{"id":"t1","amount":1234.56,"balance":"0.10","currency":"MXN"}`
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want, _ := NewMoney("1234.56")
	if !tx.Amount.Equal(want.Decimal) {
		t.Errorf("amount = %s, want %s", tx.Amount, want)
	}
	if tx.Balance == nil || tx.Balance.String() != "0.1" {
		t.Errorf("balance = %v, want 0.1", tx.Balance)
	}

	out, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(fields["amount"]) != "1234.56" {
		t.Errorf("amount should be a bare number, got %s", fields["amount"])
	}
	if string(fields["balance"]) != "0.1" {
		t.Errorf("balance should be a bare number, got %s", fields["balance"])
	}
}

func TestMoney_PrecisionSurvivesRoundTrip(t *testing.T) {
	t.Parallel()

	var m Money
	if err := json.Unmarshal([]byte("0.30000000000000000001"), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "0.30000000000000000001" {
		t.Errorf("precision lost: %s", out)
	}
}

func TestNewMoney_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewMoney("twelve"); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}
