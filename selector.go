package x402hedera

// SelectAuthorizer chooses the strategy for a payment attempt: the first
// configured authorizer that can satisfy the requirements, in configuration
// order. The strategy is selected once per attempt; the flow underneath is
// shared by both strategies.
//
// Returns ErrMissingAuthorization when no strategy is available.
func SelectAuthorizer(authorizers []Authorizer, requirements *PaymentRequirements) (Authorizer, error) {
	if len(authorizers) == 0 {
		return nil, NewPaymentError(ErrCodeMissingAuthorization, "no authorization strategies configured", ErrMissingAuthorization)
	}

	for _, a := range authorizers {
		if a.CanAuthorize(requirements) {
			return a, nil
		}
	}

	return nil, NewPaymentError(ErrCodeMissingAuthorization, "no strategy can authorize this payment", ErrMissingAuthorization).
		WithDetails("network", requirements.Network).
		WithDetails("asset", requirements.Asset)
}

// FindMatchingRequirement finds the accepted requirement a payment payload
// was built against, matching on scheme and network.
func FindMatchingRequirement(payment *PaymentPayload, requirements []PaymentRequirements) (*PaymentRequirements, error) {
	for i := range requirements {
		if requirements[i].Scheme == payment.Scheme && requirements[i].Network == payment.Network {
			return &requirements[i], nil
		}
	}
	return nil, NewPaymentError(ErrCodeInvalidRequirements, "no requirement matches the payment payload", ErrInvalidRequirements).
		WithDetails("scheme", payment.Scheme).
		WithDetails("network", payment.Network)
}
