package domain

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrInsufficientInventory    = errors.New("insufficient inventory")
	ErrInvalidWebhookSignature  = errors.New("invalid webhook signature")
	ErrDuplicateWebhookDelivery = errors.New("duplicate webhook delivery")
	ErrUnmatchedPayment         = errors.New("payment does not match any pending reservation")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrPaymentMismatch          = errors.New("payment does not match its checkout")
	ErrUnauthenticated          = errors.New("unauthenticated")
)
