package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestAccessLinkValidate(t *testing.T) {
	zero := 0
	tests := []struct {
		name string
		link AccessLink
		want error
	}{
		{"global access", AccessLink{Scope: ScopeGlobal, LinkType: LinkTypeAccess}, nil},
		{"global with model ref", AccessLink{Scope: ScopeGlobal, LinkType: LinkTypeAccess, ModelID: strPtr("m1")}, ErrScopeRefMismatch},
		{"global grant", AccessLink{Scope: ScopeGlobal, LinkType: LinkTypeGrant}, ErrGlobalGrant},
		{"model without ref", AccessLink{Scope: ScopeModel, LinkType: LinkTypeAccess}, ErrScopeRefMismatch},
		{"model grant", AccessLink{Scope: ScopeModel, LinkType: LinkTypeGrant, ModelID: strPtr("m1")}, nil},
		{"product without ref", AccessLink{Scope: ScopeProduct, LinkType: LinkTypeGrant}, ErrScopeRefMismatch},
		{"product grant", AccessLink{Scope: ScopeProduct, LinkType: LinkTypeGrant, ProductID: strPtr("p1")}, nil},
		{"unknown scope", AccessLink{Scope: "tenant", LinkType: LinkTypeAccess}, ErrInvalidScope},
		{"unknown type", AccessLink{Scope: ScopeGlobal, LinkType: "forever"}, ErrInvalidLinkType},
		{"zero max uses", AccessLink{Scope: ScopeGlobal, LinkType: LinkTypeAccess, MaxUses: &zero}, ErrInvalidMaxUses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolvedGrantUnlocks(t *testing.T) {
	var nilGrant *ResolvedGrant
	assert.False(t, nilGrant.Unlocks("m1"))

	global := &ResolvedGrant{Scope: ScopeGlobal}
	assert.True(t, global.Unlocks("m1"))

	model := &ResolvedGrant{Scope: ScopeModel, ModelID: strPtr("m1")}
	assert.True(t, model.Unlocks("m1"))
	assert.False(t, model.Unlocks("m2"))

	product := &ResolvedGrant{Scope: ScopeProduct, ProductID: strPtr("p1")}
	assert.False(t, product.Unlocks("m1"))
}

func TestFailureCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &ConsumeError{Code: CodeMaxUses})
	assert.Equal(t, CodeMaxUses, FailureCodeOf(wrapped))
	assert.Equal(t, CodeUnexpectedError, FailureCodeOf(errors.New("db down")))
	assert.NotEmpty(t, FailureCode("SOMETHING_NEW").Message())
}
