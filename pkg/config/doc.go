// Package config handles configuration loading for the account recovery tool
// from YAML files, covering site identity, account store selection, SMTP
// delivery, reset token issuance, and audit publishing.
package config
