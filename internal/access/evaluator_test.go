package access

import (
	"content-storefront/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestEvaluate(t *testing.T) {
	gated := &model.Media{ID: "m-1", ModelID: "model-1"}
	free := &model.Media{ID: "m-2", ModelID: "model-1", IsFree: true}

	products := []*model.Product{
		{ID: "base", ModelID: "model-1", IsBaseMembership: true},
		{ID: "pack", ModelID: "model-1"},
	}
	paid := func(productID string) *model.Purchase {
		return &model.Purchase{ProductID: productID, Status: model.PurchaseStatusPaid}
	}

	tests := []struct {
		name      string
		media     *model.Media
		purchases []*model.Purchase
		grant     *model.ResolvedGrant
		want      Verdict
	}{
		{name: "free media", media: free, want: Free},
		{name: "free wins over everything", media: free, purchases: []*model.Purchase{paid("base")}, want: Free},
		{name: "base membership paid", media: gated, purchases: []*model.Purchase{paid("base")}, want: Unlocked},
		{name: "other product of model paid", media: gated, purchases: []*model.Purchase{paid("pack")}, want: Unlocked},
		{
			name:      "pending purchase does not unlock",
			media:     gated,
			purchases: []*model.Purchase{{ProductID: "base", Status: model.PurchaseStatusPending}},
			want:      Locked,
		},
		{
			name:      "refunded purchase does not unlock",
			media:     gated,
			purchases: []*model.Purchase{{ProductID: "base", Status: model.PurchaseStatusRefunded}},
			want:      Locked,
		},
		{name: "paid product of another model", media: gated, purchases: []*model.Purchase{paid("elsewhere")}, want: Locked},
		{name: "global grant", media: gated, grant: &model.ResolvedGrant{Scope: model.ScopeGlobal}, want: Unlocked},
		{name: "model grant same model", media: gated, grant: &model.ResolvedGrant{Scope: model.ScopeModel, ModelID: strPtr("model-1")}, want: Unlocked},
		{name: "model grant other model", media: gated, grant: &model.ResolvedGrant{Scope: model.ScopeModel, ModelID: strPtr("model-2")}, want: Locked},
		{name: "product grant is not a model unlock", media: gated, grant: &model.ResolvedGrant{Scope: model.ScopeProduct, ProductID: strPtr("pack")}, want: Locked},
		{name: "nothing", media: gated, want: Locked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.media, tt.purchases, products, tt.grant))
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	media := &model.Media{ID: "m-1", ModelID: "model-1"}
	purchases := []*model.Purchase{{ProductID: "pack", Status: model.PurchaseStatusPaid}}
	products := []*model.Product{{ID: "pack", ModelID: "model-1"}}
	grant := &model.ResolvedGrant{Scope: model.ScopeModel, ModelID: strPtr("model-2")}

	mediaCopy := *media
	purchaseCopy := *purchases[0]
	productCopy := *products[0]
	grantCopy := *grant

	first := Evaluate(media, purchases, products, grant)
	second := Evaluate(media, purchases, products, grant)

	assert.Equal(t, first, second)
	assert.Equal(t, mediaCopy, *media)
	assert.Equal(t, purchaseCopy, *purchases[0])
	assert.Equal(t, productCopy, *products[0])
	assert.Equal(t, grantCopy, *grant)
}
