package promotion_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/promotion"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/modix-backend/internal/domain"
)

func newRepo(t *testing.T) (*promotion.Repo, uint64) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return promotion.New(testhelper.Deps(pool, nil)), testhelper.NewSnowflake()
}

func openCampaign(t *testing.T, repo *promotion.Repo, guildID, subjectID uint64) int64 {
	t.Helper()
	id, err := repo.CreateCampaign(context.Background(), &domain.PromotionCampaignCreationData{
		GuildID: guildID, SubjectID: subjectID, TargetRoleID: 500, CreatedByID: 1,
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if id == nil {
		t.Fatal("CreateCampaign returned nil for a new subject")
	}
	return *id
}

func comment(t *testing.T, repo *promotion.Repo, guildID uint64, campaignID int64, authorID uint64, s domain.PromotionSentiment) int64 {
	t.Helper()
	id, err := repo.AddComment(context.Background(), &domain.PromotionCommentCreationData{
		CampaignID: campaignID, GuildID: guildID, Sentiment: s, Content: "looks good", CreatedByID: authorID,
	})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	return id
}

func TestRepo_CreateCampaign_OnePerSubject(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	first := openCampaign(t, repo, guildID, 42)

	dup, err := repo.CreateCampaign(ctx, &domain.PromotionCampaignCreationData{
		GuildID: guildID, SubjectID: 42, TargetRoleID: 501, CreatedByID: 2,
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if dup != nil {
		t.Fatalf("expected nil for a subject with an open campaign, got %d", *dup)
	}

	if ok, err := repo.TryCloseCampaign(ctx, first, 3, domain.CampaignOutcomeRejected); err != nil || !ok {
		t.Fatalf("TryCloseCampaign = %v, %v", ok, err)
	}

	// A closed campaign no longer blocks a new one.
	openCampaign(t, repo, guildID, 42)
}

func TestRepo_CreateCampaign_Concurrent(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := repo.CreateCampaign(context.Background(), &domain.PromotionCampaignCreationData{
				GuildID: guildID, SubjectID: 77, TargetRoleID: 500, CreatedByID: 1,
			})
			if err != nil {
				t.Errorf("CreateCampaign: %v", err)
				return
			}
			if id != nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly 1 campaign created, got %d", created)
	}
}

func TestRepo_CreateCampaign_Validation(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)

	_, err := repo.CreateCampaign(context.Background(), &domain.PromotionCampaignCreationData{
		GuildID: guildID, SubjectID: 5, TargetRoleID: 500, CreatedByID: 5,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestRepo_TryCloseCampaign(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	id := openCampaign(t, repo, guildID, 10)

	if _, err := repo.TryCloseCampaign(ctx, id, 3, "MAYBE"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown outcome, got: %v", err)
	}
	if ok, err := repo.TryCloseCampaign(ctx, id, 3, domain.CampaignOutcomeAccepted); err != nil || !ok {
		t.Fatalf("TryCloseCampaign = %v, %v", ok, err)
	}
	if ok, err := repo.TryCloseCampaign(ctx, id, 4, domain.CampaignOutcomeFailed); err != nil || ok {
		t.Fatalf("second TryCloseCampaign = %v, %v; want false", ok, err)
	}

	got, err := repo.ReadCampaignSummary(ctx, id)
	if err != nil {
		t.Fatalf("ReadCampaignSummary: %v", err)
	}
	if !got.IsClosed() || got.CloseAction.CreatedByID != 3 {
		t.Errorf("CloseAction = %+v", got.CloseAction)
	}
	if got.Outcome == nil || *got.Outcome != domain.CampaignOutcomeAccepted {
		t.Errorf("Outcome = %v, want ACCEPTED", got.Outcome)
	}
	if got.State() != domain.EntityStateClosed {
		t.Errorf("State = %s", got.State())
	}
}

func TestRepo_AddComment(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	id := openCampaign(t, repo, guildID, 11)
	comment(t, repo, guildID, id, 100, domain.PromotionSentimentApprove)
	comment(t, repo, guildID, id, 101, domain.PromotionSentimentApprove)
	comment(t, repo, guildID, id, 102, domain.PromotionSentimentOppose)

	_, err := repo.AddComment(ctx, &domain.PromotionCommentCreationData{
		CampaignID: id, GuildID: guildID, Sentiment: domain.PromotionSentimentAbstain, Content: "again", CreatedByID: 100,
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for a second comment, got: %v", err)
	}

	got, err := repo.ReadCampaignSummary(ctx, id)
	if err != nil {
		t.Fatalf("ReadCampaignSummary: %v", err)
	}
	if got.ApproveCount != 2 || got.AbstainCount != 0 || got.OpposeCount != 1 {
		t.Errorf("tally = %d/%d/%d, want 2/0/1", got.ApproveCount, got.AbstainCount, got.OpposeCount)
	}

	comments, err := repo.SearchComments(ctx, domain.PromotionCommentSearchCriteria{CampaignID: &id})
	if err != nil {
		t.Fatalf("SearchComments: %v", err)
	}
	if len(comments) != 3 || comments[0].CreateAction.CreatedByID != 100 {
		t.Errorf("comments = %+v", comments)
	}
}

func TestRepo_AddComment_MissingCampaign(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)

	_, err := repo.AddComment(context.Background(), &domain.PromotionCommentCreationData{
		CampaignID: 999999999, GuildID: guildID, Sentiment: domain.PromotionSentimentApprove, Content: "hi", CreatedByID: 1,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestRepo_AddComment_ClosedCampaign(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	id := openCampaign(t, repo, guildID, 12)
	if _, err := repo.TryCloseCampaign(ctx, id, 1, domain.CampaignOutcomeFailed); err != nil {
		t.Fatalf("TryCloseCampaign: %v", err)
	}

	_, err := repo.AddComment(ctx, &domain.PromotionCommentCreationData{
		CampaignID: id, GuildID: guildID, Sentiment: domain.PromotionSentimentApprove, Content: "late", CreatedByID: 1,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got: %v", err)
	}
}

func TestRepo_TryModifyComment(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	campaignID := openCampaign(t, repo, guildID, 13)
	oldID := comment(t, repo, guildID, campaignID, 100, domain.PromotionSentimentOppose)

	newID, err := repo.TryModifyComment(ctx, oldID, 100, func(d *domain.PromotionCommentMutationData) {
		d.Sentiment = domain.PromotionSentimentApprove
		d.Content = "changed my mind"
	})
	if err != nil {
		t.Fatalf("TryModifyComment: %v", err)
	}
	if newID == nil || *newID == oldID {
		t.Fatalf("TryModifyComment returned %v, want a new row", newID)
	}

	got, err := repo.ReadCampaignSummary(ctx, campaignID)
	if err != nil {
		t.Fatalf("ReadCampaignSummary: %v", err)
	}
	if got.ApproveCount != 1 || got.OpposeCount != 0 {
		t.Errorf("tally after edit = approve %d oppose %d", got.ApproveCount, got.OpposeCount)
	}

	modified := true
	old, err := repo.SearchComments(ctx, domain.PromotionCommentSearchCriteria{CampaignID: &campaignID, IsModified: &modified})
	if err != nil {
		t.Fatalf("SearchComments: %v", err)
	}
	if len(old) != 1 || old[0].ID != oldID || old[0].State() != domain.EntityStateSuperseded {
		t.Errorf("superseded comments = %+v", old)
	}

	again, err := repo.TryModifyComment(ctx, oldID, 100, func(d *domain.PromotionCommentMutationData) {})
	if err != nil || again != nil {
		t.Fatalf("TryModifyComment on superseded row = %v, %v; want nil, nil", again, err)
	}
}

func TestRepo_TryModifyComment_ClosedCampaign(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	campaignID := openCampaign(t, repo, guildID, 14)
	id := comment(t, repo, guildID, campaignID, 100, domain.PromotionSentimentAbstain)
	if _, err := repo.TryCloseCampaign(ctx, campaignID, 1, domain.CampaignOutcomeAccepted); err != nil {
		t.Fatalf("TryCloseCampaign: %v", err)
	}

	_, err := repo.TryModifyComment(ctx, id, 100, func(d *domain.PromotionCommentMutationData) {
		d.Content = "too late"
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got: %v", err)
	}

	active := false
	comments, err := repo.SearchComments(ctx, domain.PromotionCommentSearchCriteria{CampaignID: &campaignID, IsModified: &active})
	if err != nil {
		t.Fatalf("SearchComments: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != id {
		t.Errorf("rejected edit changed the comments: %+v", comments)
	}
}

func TestRepo_SearchCampaignSummaries(t *testing.T) {
	t.Parallel()
	repo, guildID := newRepo(t)
	ctx := context.Background()

	a := openCampaign(t, repo, guildID, 20)
	openCampaign(t, repo, guildID, 21)
	if _, err := repo.TryCloseCampaign(ctx, a, 1, domain.CampaignOutcomeAccepted); err != nil {
		t.Fatalf("TryCloseCampaign: %v", err)
	}

	accepted := domain.CampaignOutcomeAccepted
	got, err := repo.SearchCampaignSummaries(ctx, domain.PromotionCampaignSearchCriteria{GuildID: &guildID, Outcome: &accepted}, nil)
	if err != nil {
		t.Fatalf("SearchCampaignSummaries: %v", err)
	}
	if len(got) != 1 || got[0].ID != a {
		t.Errorf("accepted campaigns = %+v", got)
	}

	open := false
	got, err = repo.SearchCampaignSummaries(ctx, domain.PromotionCampaignSearchCriteria{GuildID: &guildID, IsClosed: &open},
		[]domain.SortingCriteria{{PropertyName: "subjectId"}})
	if err != nil {
		t.Fatalf("SearchCampaignSummaries: %v", err)
	}
	if len(got) != 1 || got[0].SubjectID != 21 {
		t.Errorf("open campaigns = %+v", got)
	}
}
