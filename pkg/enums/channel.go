package enums

import (
	"fmt"
	"strings"
)

// Channel identifies an inventory/sales system. Each variant carries one
// InventoryRecord per channel.
type Channel string

const (
	ChannelInternal Channel = "internal"
	ChannelShopify  Channel = "shopify"
)

var validChannels = []Channel{ChannelInternal, ChannelShopify}

// String implements fmt.Stringer.
func (c Channel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Channel.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into a Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}

// SKUPrefix returns the uppercase channel tag used when deriving fallback SKUs
// for imported products that lack one.
func (c Channel) SKUPrefix() string {
	return strings.ToUpper(string(c))
}
