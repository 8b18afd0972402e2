package checkout

import (
	"github.com/xenking/storefront-checkout/internal/domain/apperr"
)

// Draft validation failures, reported in this order.
var (
	ErrNoItemsSelected        = apperr.New(apperr.KindValidation, "select at least one item to check out")
	ErrAddressRequired        = apperr.New(apperr.KindValidation, "choose a shipping address")
	ErrDeliveryMethodRequired = apperr.New(apperr.KindValidation, "choose a delivery method")
	ErrPaymentMethodRequired  = apperr.New(apperr.KindValidation, "choose a payment method")
)

// Selection failures.
var (
	ErrUnknownDeliveryMethod = apperr.New(apperr.KindValidation, "unknown delivery method")
	ErrUnknownPaymentMethod  = apperr.New(apperr.KindValidation, "unknown payment method")
)
