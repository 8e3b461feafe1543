package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Pourna2598/ecommerce-microservices/internal/apperrors"
	"github.com/Pourna2598/ecommerce-microservices/internal/models"
)

func TestMemoryOrderRepositoryVersionGuard(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	order := &models.Order{ID: "o1", UserID: "u1", Status: models.OrderStatusPending, CreatedAt: time.Now()}
	if err := repo.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	// Two readers pick up the same version; the second writer loses.
	first, _ := repo.GetByID(ctx, "o1")
	second, _ := repo.GetByID(ctx, "o1")

	first.Status = models.OrderStatusProcessing
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	second.Status = models.OrderStatusCancelled
	if err := repo.Update(ctx, second); !apperrors.IsConflict(err) {
		t.Errorf("expected ConflictError for stale version, got %v", err)
	}

	current, _ := repo.GetByID(ctx, "o1")
	if current.Status != models.OrderStatusProcessing {
		t.Errorf("Status = %q, want processing", current.Status)
	}
}

func TestMemoryOrderRepositoryNotFound(t *testing.T) {
	repo := NewMemoryOrderRepository()

	if _, err := repo.GetByID(context.Background(), "missing"); !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
	if err := repo.Update(context.Background(), &models.Order{ID: "missing"}); !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError on update, got %v", err)
	}
}

func TestMemoryPaymentRepositoryUniqueOrder(t *testing.T) {
	repo := NewMemoryPaymentRepository()
	ctx := context.Background()

	p1 := &models.Payment{ID: "p1", OrderID: "o1", UserID: "u1", Amount: 10, CreatedAt: time.Now()}
	if err := repo.Create(ctx, p1); err != nil {
		t.Fatal(err)
	}

	p2 := &models.Payment{ID: "p2", OrderID: "o1", UserID: "u1", Amount: 10, CreatedAt: time.Now()}
	if err := repo.Create(ctx, p2); !apperrors.IsConflict(err) {
		t.Errorf("expected ConflictError for duplicate order, got %v", err)
	}

	got, err := repo.GetByOrderID(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "p1" {
		t.Errorf("GetByOrderID = %q, want p1", got.ID)
	}
}

func TestMemoryRepositoryListSortsNewestFirst(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		order := &models.Order{
			ID: id, UserID: "u1", Status: models.OrderStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, order); err != nil {
			t.Fatal(err)
		}
	}

	orders, total, err := repo.List(ctx, models.OrderFilter{Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if orders[0].ID != "new" || orders[2].ID != "old" {
		t.Errorf("order = %s,%s,%s, want new,mid,old", orders[0].ID, orders[1].ID, orders[2].ID)
	}
}
