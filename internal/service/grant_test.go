package service

import (
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"content-storefront/internal/testutil"
	"content-storefront/internal/token"
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, svc GrantService, in IssueLinkInput) *IssuedLink {
	t.Helper()
	issued, err := svc.IssueLink(context.Background(), in)
	require.NoError(t, err)
	return issued
}

func requireCode(t *testing.T, err error, want model.FailureCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, model.FailureCodeOf(err))
}

func TestIssueLink(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	issued := issue(t, svc, IssueLinkInput{
		Scope:     model.ScopeModel,
		LinkType:  model.LinkTypeAccess,
		ModelID:   "model-1",
		Label:     "instagram bio",
		MaxUses:   testutil.IntPtr(10),
		CreatedBy: "admin-1",
	})

	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "https://shop.example/access/"+url.PathEscape(issued.Token), issued.URL)

	stored, err := f.links.FindByID(ctx, issued.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, token.Fingerprint(issued.Token), stored.TokenFingerprint)
	assert.NotEqual(t, issued.Token, stored.TokenFingerprint)
	assert.True(t, stored.Active)
	assert.Equal(t, 0, stored.Uses)
	assert.Equal(t, "admin-1", stored.CreatedBy)

	t.Run("rejects invalid combinations", func(t *testing.T) {
		_, err := svc.IssueLink(ctx, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeGrant})
		assert.ErrorIs(t, err, model.ErrGlobalGrant)

		_, err = svc.IssueLink(ctx, IssueLinkInput{Scope: model.ScopeProduct, LinkType: model.LinkTypeAccess})
		assert.ErrorIs(t, err, model.ErrScopeRefMismatch)

		_, err = svc.IssueLink(ctx, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess, MaxUses: testutil.IntPtr(0)})
		assert.ErrorIs(t, err, model.ErrInvalidMaxUses)
	})

	t.Run("rejects dangling references", func(t *testing.T) {
		_, err := svc.IssueLink(ctx, IssueLinkInput{Scope: model.ScopeModel, LinkType: model.LinkTypeAccess, ModelID: "ghost"})
		assert.ErrorIs(t, err, model.ErrModelNotFound)

		_, err = svc.IssueLink(ctx, IssueLinkInput{Scope: model.ScopeProduct, LinkType: model.LinkTypeGrant, ProductID: "ghost"})
		assert.ErrorIs(t, err, model.ErrProductNotFound)

		// model-2 has no base membership to grant
		_, err = svc.IssueLink(ctx, IssueLinkInput{Scope: model.ScopeModel, LinkType: model.LinkTypeGrant, ModelID: "model-2"})
		assert.ErrorIs(t, err, model.ErrNoBaseMembership)
	})
}

func TestConsumeSingleUseAccessLink(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	issued := issue(t, svc, IssueLinkInput{
		Scope:    model.ScopeModel,
		LinkType: model.LinkTypeAccess,
		ModelID:  "model-1",
		MaxUses:  testutil.IntPtr(1),
	})

	grant, err := svc.Consume(ctx, ConsumeInput{
		Token:     issued.Token,
		Requester: Requester{Name: "Carla", Email: "carla@example.com"},
		Meta:      VisitMeta{UserAgent: "test-agent", IP: "203.0.113.7"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ScopeModel, grant.Scope)
	assert.Equal(t, model.LinkTypeAccess, grant.LinkType)
	assert.Equal(t, "model-1", *grant.ModelID)
	assert.Nil(t, grant.ExpiresAt)

	link, err := f.links.FindByID(ctx, issued.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, link.Uses)
	require.NotNil(t, link.LastValidatorEmail)
	assert.Equal(t, "carla@example.com", *link.LastValidatorEmail)

	_, err = svc.Consume(ctx, ConsumeInput{Token: issued.Token})
	requireCode(t, err, model.CodeMaxUses)

	link, err = f.links.FindByID(ctx, issued.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, link.Uses)

	// access links never touch the ledger
	count, err := f.purchases.CountByUserProduct(ctx, "", "prodA")
	require.NoError(t, err)
	assert.Zero(t, count)

	f.recorder.Wait()
	visits, err := svc.ListVisits(ctx, issued.Link.ID, 0)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	outcomes := []string{visits[0].Outcome, visits[1].Outcome}
	assert.ElementsMatch(t, []string{"OK", string(model.CodeMaxUses)}, outcomes)
}

func TestConsumeGrantLinkRequiresIdentity(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	issued := issue(t, svc, IssueLinkInput{
		Scope:     model.ScopeProduct,
		LinkType:  model.LinkTypeGrant,
		ProductID: "prodB",
	})

	_, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token, Requester: Requester{UserID: "user1"}})
	requireCode(t, err, model.CodeEmailRequired)

	_, err = svc.Consume(ctx, ConsumeInput{Token: issued.Token, Requester: Requester{Email: "u1@example.com"}})
	requireCode(t, err, model.CodeLoginRequired)

	link, err := f.links.FindByID(ctx, issued.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, link.Uses, "refused attempts do not count")

	grant, err := svc.Consume(ctx, ConsumeInput{
		Token:     issued.Token,
		Requester: Requester{Email: "u1@example.com", UserID: "user1"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.LinkTypeGrant, grant.LinkType)
	assert.Equal(t, "prodB", *grant.ProductID)

	purchase, err := f.purchases.FindByUserProduct(ctx, "user1", "prodB")
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusPaid, purchase.Status)
	assert.Equal(t, model.PaymentProviderGrantLink, purchase.PaymentProvider)
	assert.NotNil(t, purchase.PaidAt)

	// redeeming again is idempotent on the ledger
	_, err = svc.Consume(ctx, ConsumeInput{
		Token:     issued.Token,
		Requester: Requester{Email: "u1@example.com", UserID: "user1"},
	})
	require.NoError(t, err)

	count, err := f.purchases.CountByUserProduct(ctx, "user1", "prodB")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, "user1", published[0].Key)
}

func TestConsumeGrantLinkOnClosedPurchase(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	_, err := f.purchases.UpsertPending(ctx, nil, "user5", "prodB", 1990, providerMercadoPago)
	require.NoError(t, err)
	_, err = f.purchases.AttachPayment(ctx, "user5", "prodB", "5005", "{}")
	require.NoError(t, err)
	ok, err := f.purchases.Transition(ctx, "user5", "prodB", "5005", model.PurchaseStatusRefunded, "{}", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeProduct, LinkType: model.LinkTypeGrant, ProductID: "prodB"})

	_, err = svc.Consume(ctx, ConsumeInput{
		Token:     issued.Token,
		Requester: Requester{Email: "u5@example.com", UserID: "user5"},
	})
	requireCode(t, err, model.CodePurchaseClosed)

	link, err := f.links.FindByID(ctx, issued.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, link.Uses, "the use is rolled back")

	purchase, err := f.purchases.FindByUserProduct(ctx, "user5", "prodB")
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusRefunded, purchase.Status)
	assert.Empty(t, f.publisher.Events())
}

func TestConsumeModelGrantResolvesBaseMembership(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeModel, LinkType: model.LinkTypeGrant, ModelID: "model-1"})

	_, err := svc.Consume(ctx, ConsumeInput{
		Token:     issued.Token,
		Requester: Requester{Email: "u2@example.com", UserID: "user2"},
	})
	require.NoError(t, err)

	purchase, err := f.purchases.FindByUserProduct(ctx, "user2", f.catalog.BaseProduct.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseStatusPaid, purchase.Status)
}

func TestConsumeModelGrantWithoutBaseMembershipRollsBack(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	// bypasses IssueLink, which would refuse this link
	raw := "orphan-grant-token"
	link := &model.AccessLink{
		ID:               "link-orphan",
		TokenFingerprint: token.Fingerprint(raw),
		Scope:            model.ScopeModel,
		LinkType:         model.LinkTypeGrant,
		ModelID:          testutil.StrPtr("model-2"),
		Active:           true,
	}
	require.NoError(t, f.links.Create(ctx, link))

	_, err := svc.Consume(ctx, ConsumeInput{Token: raw, Requester: Requester{Email: "x@example.com", UserID: "user3"}})
	requireCode(t, err, model.CodeUnexpectedError)
	assert.ErrorIs(t, err, model.ErrNoBaseMembership)

	stored, err := f.links.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Uses, "increment is rolled back with the failed grant")
}

func TestConsumeValidationOrder(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	yesterday := now.Add(-24 * time.Hour)

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.Consume(ctx, ConsumeInput{Token: "does-not-exist"})
		requireCode(t, err, model.CodeInvalidLink)

		_, err = svc.Consume(ctx, ConsumeInput{Token: "  "})
		requireCode(t, err, model.CodeInvalidLink)
	})

	t.Run("expired beats remaining uses", func(t *testing.T) {
		issued := issue(t, svc, IssueLinkInput{
			Scope:     model.ScopeGlobal,
			LinkType:  model.LinkTypeAccess,
			ExpiresAt: &yesterday,
			MaxUses:   testutil.IntPtr(5),
		})
		for i := 0; i < 3; i++ {
			_, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token})
			requireCode(t, err, model.CodeExpiredLink)
		}
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess, ExpiresAt: &now})
		_, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token})
		requireCode(t, err, model.CodeExpiredLink)
	})

	t.Run("inactive beats expired", func(t *testing.T) {
		issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess, ExpiresAt: &yesterday})
		require.NoError(t, svc.DisableLink(ctx, issued.Link.ID))

		_, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token})
		requireCode(t, err, model.CodeInactiveLink)
	})

	t.Run("max uses beats missing email", func(t *testing.T) {
		issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeProduct, LinkType: model.LinkTypeGrant, ProductID: "prodA", MaxUses: testutil.IntPtr(1)})
		_, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token, Requester: Requester{Email: "a@example.com", UserID: "user4"}})
		require.NoError(t, err)

		_, err = svc.Consume(ctx, ConsumeInput{Token: issued.Token})
		requireCode(t, err, model.CodeMaxUses)
	})

	t.Run("future expiry is returned with the grant", func(t *testing.T) {
		tomorrow := now.Add(24 * time.Hour)
		issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess, ExpiresAt: &tomorrow})
		grant, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token})
		require.NoError(t, err)
		require.NotNil(t, grant.ExpiresAt)
		assert.True(t, grant.ExpiresAt.Equal(tomorrow))
	})

	f.recorder.Wait()
}

func TestConsumeConcurrentRedemptionsRespectCap(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	const maxUses, callers = 3, 12
	issued := issue(t, svc, IssueLinkInput{
		Scope:    model.ScopeGlobal,
		LinkType: model.LinkTypeAccess,
		MaxUses:  testutil.IntPtr(maxUses),
	})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		codes     = map[model.FailureCode]int{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, ConsumeInput{Token: issued.Token})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			codes[model.FailureCodeOf(err)]++
		}()
	}
	wg.Wait()
	f.recorder.Wait()

	assert.Equal(t, maxUses, successes)
	assert.Equal(t, map[model.FailureCode]int{model.CodeMaxUses: callers - maxUses}, codes)

	link, err := f.links.FindByID(ctx, issued.Link.ID)
	require.NoError(t, err)
	assert.Equal(t, maxUses, link.Uses)
}

func TestListAndDisableLinks(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	a := issue(t, svc, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess, Label: "a"})
	issue(t, svc, IssueLinkInput{Scope: model.ScopeModel, LinkType: model.LinkTypeAccess, ModelID: "model-1", Label: "b"})

	require.NoError(t, svc.DisableLink(ctx, a.Link.ID))
	assert.ErrorIs(t, svc.DisableLink(ctx, "missing"), model.ErrLinkNotFound)

	active, err := svc.ListLinks(ctx, repository.LinkFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Label)

	_, err = svc.ListVisits(ctx, "missing", 10)
	assert.ErrorIs(t, err, model.ErrLinkNotFound)
}

func TestConsumeTruncatesVisitMeta(t *testing.T) {
	f := newFixture(t)
	svc := f.grantService()
	ctx := context.Background()

	issued := issue(t, svc, IssueLinkInput{Scope: model.ScopeGlobal, LinkType: model.LinkTypeAccess})
	_, err := svc.Consume(ctx, ConsumeInput{
		Token: issued.Token,
		Meta:  VisitMeta{UserAgent: strings.Repeat("a", 2000), IP: "198.51.100.1"},
	})
	require.NoError(t, err)

	f.recorder.Wait()
	visits, err := svc.ListVisits(ctx, issued.Link.ID, 10)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Len(t, visits[0].UserAgent, 512)
	assert.Equal(t, "198.51.100.1", visits[0].IP)
	assert.Nil(t, visits[0].VisitorEmail)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abc", 2))
	// "é" is two bytes; cutting inside it drops the whole rune
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "aé", truncate("aé", 3))
	assert.Equal(t, "", truncate("日本", 2))

	ua := strings.Repeat("ü", 300)
	got := truncate(ua, 512)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, 512)
}
