package dto

import (
	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
)

func parseLineIDs(rawItem, rawVariant string) (id.ID, id.ID, error) {
	itemID, err := id.Parse(rawItem)
	if err != nil {
		return id.Nil(), id.Nil(), apperror.NewValidation("invalid item id").WithDetail("itemId", rawItem)
	}
	variantID, err := id.Parse(rawVariant)
	if err != nil {
		return id.Nil(), id.Nil(), apperror.NewValidation("invalid variant id").WithDetail("variantId", rawVariant)
	}
	return itemID, variantID, nil
}
