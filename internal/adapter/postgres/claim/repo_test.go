package claim_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/claim"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

func newRepo(t *testing.T) (*claim.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return claim.New(testhelper.Deps(pool, nil)), pool
}

func roleGrant(guildID, roleID uint64, c domain.AuthorizationClaim) *domain.ClaimMappingCreationData {
	return &domain.ClaimMappingCreationData{
		Type:        domain.ClaimMappingTypeGranted,
		GuildID:     guildID,
		RoleID:      testhelper.Ptr(roleID),
		Claim:       c,
		CreatedByID: 1,
	}
}

func TestRepo_CreateIfAbsent_Duplicate(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	guildID := testhelper.NewSnowflake()

	data := roleGrant(guildID, 10, "X")
	first, err := repo.CreateIfAbsent(ctx, data, data.UniquenessCriteria())
	if err != nil || first == nil {
		t.Fatalf("first CreateIfAbsent = %v, %v", first, err)
	}

	second, err := repo.CreateIfAbsent(ctx, data, data.UniquenessCriteria())
	if err != nil {
		t.Fatalf("second CreateIfAbsent: %v", err)
	}
	if second != nil {
		t.Fatalf("expected nil for duplicate, got %d", *second)
	}

	got, err := repo.ReadSummary(ctx, *first)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if got.Claim != "X" || got.RoleID == nil || *got.RoleID != 10 || got.UserID != nil {
		t.Errorf("summary mismatch: %+v", got)
	}

	// Once deleted, the key is free again.
	if ok, err := repo.TryDelete(ctx, *first, 2); err != nil || !ok {
		t.Fatalf("TryDelete = %v, %v", ok, err)
	}
	third, err := repo.CreateIfAbsent(ctx, data, data.UniquenessCriteria())
	if err != nil || third == nil {
		t.Fatalf("CreateIfAbsent after delete = %v, %v", third, err)
	}
}

func TestRepo_CreateIfAbsent_Concurrent(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	guildID := testhelper.NewSnowflake()
	data := roleGrant(guildID, 10, "ModerationBan")

	var (
		created atomic.Int32
		nils    atomic.Int32
		wg      sync.WaitGroup
	)
	const n = 10
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := repo.CreateIfAbsent(context.Background(), data, data.UniquenessCriteria())
			if err != nil {
				t.Errorf("CreateIfAbsent: %v", err)
				return
			}
			if id != nil {
				created.Add(1)
			} else {
				nils.Add(1)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 || nils.Load() != n-1 {
		t.Fatalf("created=%d nils=%d, want 1 and %d", created.Load(), nils.Load(), n-1)
	}
	if rows := testhelper.CountRows(t, pool, "claim_mappings", guildID); rows != 1 {
		t.Errorf("expected 1 mapping row, got %d", rows)
	}
}

func TestRepo_Create_Validation(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	data := roleGrant(testhelper.NewSnowflake(), 10, "X")
	data.UserID = testhelper.Ptr(uint64(5))

	_, err := repo.Create(context.Background(), data)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestRepo_Search_RoleOrUser(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	guildID := testhelper.NewSnowflake()

	byRole, err := repo.Create(ctx, roleGrant(guildID, 10, "Warn"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	byUser, err := repo.Create(ctx, &domain.ClaimMappingCreationData{
		Type:        domain.ClaimMappingTypeDenied,
		GuildID:     guildID,
		UserID:      testhelper.Ptr(uint64(500)),
		Claim:       "Ban",
		CreatedByID: 1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, roleGrant(guildID, 11, "Mute")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	notDeleted := false
	ids, err := repo.SearchIDs(ctx, domain.ClaimMappingSearchCriteria{
		GuildID:   &guildID,
		RoleIDs:   []uint64{10},
		UserID:    testhelper.Ptr(uint64(500)),
		IsDeleted: &notDeleted,
	})
	if err != nil {
		t.Fatalf("SearchIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != byRole || ids[1] != byUser {
		t.Fatalf("SearchIDs = %v, want [%d %d]", ids, byRole, byUser)
	}

	briefs, err := repo.SearchBriefs(ctx, domain.ClaimMappingSearchCriteria{
		GuildID: &guildID,
		Types:   []domain.ClaimMappingType{domain.ClaimMappingTypeDenied},
	})
	if err != nil {
		t.Fatalf("SearchBriefs: %v", err)
	}
	if len(briefs) != 1 || briefs[0].ID != byUser || briefs[0].Claim != "Ban" {
		t.Errorf("SearchBriefs = %+v", briefs)
	}
}

func TestRepo_TryDelete_Twice(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, roleGrant(testhelper.NewSnowflake(), 10, "X"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := repo.TryDelete(ctx, id, 2); err != nil || !ok {
		t.Fatalf("first TryDelete = %v, %v", ok, err)
	}
	if ok, err := repo.TryDelete(ctx, id, 3); err != nil || ok {
		t.Fatalf("second TryDelete = %v, %v; want false", ok, err)
	}

	got, err := repo.ReadSummary(ctx, id)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if !got.IsDeleted() || got.DeleteAction.CreatedByID != 2 {
		t.Errorf("DeleteAction = %+v, want created by 2", got.DeleteAction)
	}
}
