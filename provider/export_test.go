package provider

// Test-only exports for the external provider_test package.
var (
	ConvertToAnthropicMessagesForTest = convertToAnthropicMessages
	StripVendorPrefixForTest          = stripVendorPrefix
)
