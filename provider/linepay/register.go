package linepay

import "github.com/ordermesh/paygate/provider"

func init() {
	provider.Register(provider.ProviderLinePay, NewProvider)
}
