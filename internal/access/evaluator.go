// Package access decides whether a media item is shown to the viewer.
package access

import "content-storefront/internal/model"

type Verdict string

const (
	Free     Verdict = "free"
	Unlocked Verdict = "unlocked"
	Locked   Verdict = "locked"
)

// Evaluate returns the verdict for one media item. modelProducts are the
// products of the media's model; purchases may span any models. Inputs are
// only read.
//
// A grant unlocks content visually only. Permanent unlocks come from paid
// purchases, which grant links create at consume time.
func Evaluate(media *model.Media, purchases []*model.Purchase, modelProducts []*model.Product, grant *model.ResolvedGrant) Verdict {
	if media.IsFree {
		return Free
	}

	paid := make(map[string]struct{}, len(purchases))
	for _, p := range purchases {
		if p.Status == model.PurchaseStatusPaid {
			paid[p.ProductID] = struct{}{}
		}
	}

	// base membership first, then any other product of the model
	for _, product := range modelProducts {
		if product.ModelID != media.ModelID || !product.IsBaseMembership {
			continue
		}
		if _, ok := paid[product.ID]; ok {
			return Unlocked
		}
	}
	for _, product := range modelProducts {
		if product.ModelID != media.ModelID {
			continue
		}
		if _, ok := paid[product.ID]; ok {
			return Unlocked
		}
	}

	if grant.Unlocks(media.ModelID) {
		return Unlocked
	}

	return Locked
}
