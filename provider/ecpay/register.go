package ecpay

import "github.com/ordermesh/paygate/provider"

func init() {
	provider.Register(provider.ProviderECPay, NewProvider)
}
