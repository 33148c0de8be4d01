package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plain password")
	}
	if !CheckPassword("correct horse battery", hash) {
		t.Fatal("CheckPassword() = false for matching password")
	}
	if CheckPassword("wrong password", hash) {
		t.Fatal("CheckPassword() = true for non-matching password")
	}
}

func TestHashPasswordProducesUniqueHashes(t *testing.T) {
	first, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	second, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if first == second {
		t.Fatal("bcrypt hashes of the same password should differ by salt")
	}
}

func TestCheckPasswordRejectsMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatal("CheckPassword() = true for malformed stored hash")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("1234567"); err == nil {
		t.Fatal("expected error for 7-char password")
	}
	if err := ValidatePassword("12345678"); err != nil {
		t.Fatalf("ValidatePassword() error = %v for 8-char password", err)
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Fatalf("ValidateEmail(%q) error = %v", email, err)
		}
	}
	invalid := []string{"", "plainaddress", "missing@tld@twice", "Name <a@b.co>", "a b@c.de"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Fatalf("ValidateEmail(%q) expected error", email)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("NormalizeEmail() = %q", got)
	}
}
