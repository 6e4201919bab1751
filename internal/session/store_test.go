package session

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(v int) *int { return &v }

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func strPtr(v string) *string { return &v }

func genPtr(v uint64) *uint64 { return &v }

func TestGet_Missing(t *testing.T) {
	s := NewStore()

	sess, ok := s.Get(1, 2)
	if ok {
		t.Error("expected ok=false for missing session")
	}
	if sess.State != StateIdle {
		t.Errorf("state = %q, want idle", sess.State)
	}
}

func TestSet_CreatesAndMerges(t *testing.T) {
	s := NewStore()

	s.Set(1, 2, StateAwaitingCategory, Patch{Generation: genPtr(3)})
	s.Set(1, 2, StateAwaitingSubcategory, Patch{CategoryID: intPtr(4)})
	s.Set(1, 2, StateAwaitingAmount, Patch{SubcategoryID: intPtr(5)})

	sess, ok := s.Get(1, 2)
	if !ok {
		t.Fatal("session should exist")
	}
	if sess.State != StateAwaitingAmount {
		t.Errorf("state = %q", sess.State)
	}
	if sess.Data.CategoryID != 4 || sess.Data.SubcategoryID != 5 || sess.Data.Generation != 3 {
		t.Errorf("data = %+v, earlier patches should survive merges", sess.Data)
	}
}

func TestSet_AmountAndComment(t *testing.T) {
	s := NewStore()

	amount := decimal.RequireFromString("12.5")
	s.Set(1, 2, StateAwaitingComment, Patch{Amount: decPtr(amount)})
	s.Set(1, 2, StateIdle, Patch{Comment: strPtr("lunch")})

	sess, _ := s.Get(1, 2)
	if !sess.Data.Amount.Equal(amount) {
		t.Errorf("amount = %s", sess.Data.Amount)
	}
	if sess.Data.Comment != "lunch" {
		t.Errorf("comment = %q", sess.Data.Comment)
	}
}

func TestDelete_MissingIsNoop(t *testing.T) {
	s := NewStore()
	s.Delete(9, 9) // must not panic

	s.Set(1, 2, StateAwaitingAmount, Patch{})
	s.Delete(1, 2)
	if _, ok := s.Get(1, 2); ok {
		t.Error("session should be gone after delete")
	}
}

func TestOneSessionPerConversation(t *testing.T) {
	s := NewStore()

	// Same user in two chats, two users in one chat: distinct keys.
	s.Set(1, 100, StateAwaitingCategory, Patch{})
	s.Set(1, 200, StateAwaitingAmount, Patch{})
	s.Set(2, 100, StateAwaitingComment, Patch{})

	if s.Len() != 3 {
		t.Errorf("len = %d, want 3", s.Len())
	}

	// Re-setting the same key never creates a second session.
	s.Set(1, 100, StateAwaitingAmount, Patch{})
	if s.Len() != 3 {
		t.Errorf("len = %d after re-set, want 3", s.Len())
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Set(1, 2, StateAwaitingAmount, Patch{CategoryID: intPtr(1)})

	sess, _ := s.Get(1, 2)
	sess.Data.CategoryID = 99

	again, _ := s.Get(1, 2)
	if again.Data.CategoryID != 1 {
		t.Error("mutating a returned session must not affect the store")
	}
}

func TestConcurrentWritesSameKey(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Set(1, 2, StateAwaitingAmount, Patch{CategoryID: intPtr(n)})
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}
