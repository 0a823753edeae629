package settings

// Well-known setting keys read by the checkout path. Values live in
// the settings table so operators can change them without a deploy.
const (
	KeyCheckoutMode         = "checkout_mode"
	KeyMaxCartItems         = "checkout_max_cart_items"
	KeyMinOrderAmount       = "checkout_min_order_amount"
	KeyCurrency             = "currency"
	KeyPaymentCODEnabled    = "payments_cod_enabled"
	KeyPaymentOnlineEnabled = "payments_online_enabled"
)

// Checkout modes.
const (
	CheckoutModeMultiStore  = "multi_store"
	CheckoutModeSingleStore = "single_store"
)
