package services

import (
	"net/url"
	"strings"
)

const (
	shippingProviderUSPS  = "usps"
	shippingProviderFedEx = "fedex"
	shippingProviderUPS   = "ups"
)

// normalizeShippingProvider returns a canonical provider key for known carriers.
func normalizeShippingProvider(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	normalized = replacer.Replace(normalized)

	switch normalized {
	case "usps", "unitedstatespostalservice":
		return shippingProviderUSPS
	case "fedex", "federalexpress":
		return shippingProviderFedEx
	case "ups", "unitedparcelservice":
		return shippingProviderUPS
	default:
		return ""
	}
}

func canonicalCarrierName(provider string) string {
	switch normalizeShippingProvider(provider) {
	case shippingProviderUSPS:
		return "USPS"
	case shippingProviderFedEx:
		return "FedEx"
	case shippingProviderUPS:
		return "UPS"
	default:
		return ""
	}
}

// NormalizeCarrierName keeps custom carriers untouched and normalizes known ones.
func NormalizeCarrierName(carrier string) string {
	trimmed := strings.TrimSpace(carrier)
	if trimmed == "" {
		return ""
	}
	if canonical := canonicalCarrierName(trimmed); canonical != "" {
		return canonical
	}
	return trimmed
}

// BuildTrackingURL returns a carrier-specific tracking URL. Unknown carriers return empty.
func BuildTrackingURL(carrier, trackingNumber string) string {
	number := strings.TrimSpace(trackingNumber)
	if number == "" {
		return ""
	}

	escaped := url.QueryEscape(number)
	switch normalizeShippingProvider(carrier) {
	case shippingProviderUSPS:
		return "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + escaped
	case shippingProviderFedEx:
		return "https://www.fedex.com/fedextrack/?trknbr=" + escaped
	case shippingProviderUPS:
		return "https://www.ups.com/track?tracknum=" + escaped
	default:
		return ""
	}
}
