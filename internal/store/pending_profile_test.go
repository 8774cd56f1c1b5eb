package store

import "testing"

func TestPendingProfileUpsertSingleRow(t *testing.T) {
	db := setupTestDB(t)
	s := NewPendingProfileStore(db)

	first, err := s.Upsert("Ana@B.com", "Ana", "Acme", "11999998888")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Email != "ana@b.com" {
		t.Errorf("email = %q, want normalized %q", first.Email, "ana@b.com")
	}

	second, err := s.Upsert("ana@b.com", "Ana Maria", "Acme", "11999998888")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a second row: ids %d and %d", first.ID, second.ID)
	}
	if second.Name != "Ana Maria" {
		t.Errorf("name = %q, want %q", second.Name, "Ana Maria")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pending_profiles`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestPendingProfileGetValid(t *testing.T) {
	db := setupTestDB(t)
	s := NewPendingProfileStore(db)

	if _, err := s.Upsert("a@b.com", "Ana", "Acme", "11999998888"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	p, err := s.GetValidByEmail("A@B.com")
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if p == nil {
		t.Fatal("expected pending profile, got nil")
	}
	if p.Name != "Ana" {
		t.Errorf("name = %q, want Ana", p.Name)
	}
}

func TestPendingProfileExpired(t *testing.T) {
	db := setupTestDB(t)
	s := NewPendingProfileStore(db)

	if _, err := s.Upsert("a@b.com", "Ana", "Acme", "11999998888"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := db.Exec(`UPDATE pending_profiles SET expires_at = datetime('now', '-1 hour')`); err != nil {
		t.Fatalf("expire row: %v", err)
	}

	p, err := s.GetValidByEmail("a@b.com")
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if p != nil {
		t.Error("expected nil for expired pending profile")
	}

	removed, err := s.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestPendingProfileDelete(t *testing.T) {
	db := setupTestDB(t)
	s := NewPendingProfileStore(db)

	if _, err := s.Upsert("a@b.com", "Ana", "Acme", "11999998888"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteByEmail("A@b.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	p, err := s.GetValidByEmail("a@b.com")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if p != nil {
		t.Error("expected nil after delete")
	}
}
