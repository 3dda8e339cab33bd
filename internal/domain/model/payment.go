package model

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	MethodInvoice        PaymentMethod = "INVOICE"
	MethodVirtualAccount PaymentMethod = "VIRTUAL_ACCOUNT"
	MethodManual         PaymentMethod = "MANUAL"
	MethodFree           PaymentMethod = "FREE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodInvoice, MethodVirtualAccount, MethodManual:
		return true
	}
	return false
}

type PaymentChannel string

const (
	ChannelBCA       PaymentChannel = "BCA"
	ChannelMandiri   PaymentChannel = "MANDIRI"
	ChannelBNI       PaymentChannel = "BNI"
	ChannelBRI       PaymentChannel = "BRI"
	ChannelBSI       PaymentChannel = "BSI"
	ChannelCIMB      PaymentChannel = "CIMB"
	ChannelPermata   PaymentChannel = "PERMATA"
	ChannelOVO       PaymentChannel = "OVO"
	ChannelDANA      PaymentChannel = "DANA"
	ChannelGoPay     PaymentChannel = "GOPAY"
	ChannelLinkAja   PaymentChannel = "LINKAJA"
	ChannelShopeePay PaymentChannel = "SHOPEEPAY"
	ChannelQRIS      PaymentChannel = "QRIS"
	ChannelAlfamart  PaymentChannel = "ALFAMART"
	ChannelIndomaret PaymentChannel = "INDOMARET"
)

var channelNames = map[PaymentChannel]string{
	ChannelBCA:       "Bank Central Asia",
	ChannelMandiri:   "Bank Mandiri",
	ChannelBNI:       "Bank Negara Indonesia",
	ChannelBRI:       "Bank Rakyat Indonesia",
	ChannelBSI:       "Bank Syariah Indonesia",
	ChannelCIMB:      "CIMB Niaga",
	ChannelPermata:   "Bank Permata",
	ChannelOVO:       "OVO",
	ChannelDANA:      "DANA",
	ChannelGoPay:     "GoPay",
	ChannelLinkAja:   "LinkAja",
	ChannelShopeePay: "ShopeePay",
	ChannelQRIS:      "QRIS",
	ChannelAlfamart:  "Alfamart",
	ChannelIndomaret: "Indomaret",
}

var vaBanks = map[PaymentChannel]bool{
	ChannelBCA: true, ChannelMandiri: true, ChannelBNI: true, ChannelBRI: true,
	ChannelBSI: true, ChannelCIMB: true, ChannelPermata: true,
}

func ParseChannel(s string) (PaymentChannel, bool) {
	c := PaymentChannel(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := channelNames[c]
	return c, ok
}

// DisplayName is the full customer-facing channel name; unknown channels are echoed back.
func (c PaymentChannel) DisplayName() string {
	if n, ok := channelNames[c]; ok {
		return n
	}
	return string(c)
}

// SupportsVirtualAccount reports whether a dedicated VA can be requested for the channel.
func (c PaymentChannel) SupportsVirtualAccount() bool { return vaBanks[c] }

// PaymentInstrument is the normalized result of every payment gateway.
type PaymentInstrument struct {
	Provider    string
	ProviderRef string
	Method      PaymentMethod
	Channel     PaymentChannel
	PaymentURL  string
	VANumber    string
	ExpiresAt   time.Time
	// FellBack is set when the requested method failed and a hosted invoice was issued instead.
	FellBack bool
}

// PaymentConfirmation describes an observed payment, from a webhook or an admin.
type PaymentConfirmation struct {
	Source      string // webhook event type, "admin", "bulk", "free"
	ProviderRef string
	Channel     PaymentChannel
	PaidAmount  int64 // 0 when unknown
	Destination string
	PaidAt      time.Time
}

// ProviderEventType is the action a provider callback asks for.
type ProviderEventType string

const (
	ProviderEventPaid    ProviderEventType = "paid"
	ProviderEventExpired ProviderEventType = "expired"
	ProviderEventFailed  ProviderEventType = "failed"
	ProviderEventIgnored ProviderEventType = "ignored"
)

// ProviderEvent is a decoded, provider-neutral webhook callback.
type ProviderEvent struct {
	Name        string // raw event name, e.g. invoice.paid
	Type        ProviderEventType
	ExternalID  string
	ProviderRef string
	PaidAmount  int64
	Channel     string
	Destination string
	FailureCode string
	PaidAt      time.Time
}
