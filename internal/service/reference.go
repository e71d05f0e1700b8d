package service

import (
	"content-storefront/internal/model"
	"fmt"
	"strings"
)

const referenceSeparator = "|"

// EncodeExternalReference packs the purchase natural key into the provider's
// external_reference so a webhook can find its row without a lookup table.
func EncodeExternalReference(userID, productID string) string {
	return userID + referenceSeparator + productID
}

// DecodeExternalReference splits on the last separator. Product ids are ours
// and never contain it; user ids come from the identity provider and may.
func DecodeExternalReference(ref string) (userID, productID string, err error) {
	i := strings.LastIndex(ref, referenceSeparator)
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("%w: %q", model.ErrMalformedReference, ref)
	}
	return ref[:i], ref[i+1:], nil
}
