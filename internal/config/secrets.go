package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder. Use it when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Indexer.APIKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the
	// redacted copy.
	out.Exchange.LegacyAddresses = copyStrings(cfg.Exchange.LegacyAddresses)
	out.Exchange.FeeOnTransferTokens = copyStrings(cfg.Exchange.FeeOnTransferTokens)
	out.Server.CORSOrigins = copyStrings(cfg.Server.CORSOrigins)
	out.Notify.Events = copyStrings(cfg.Notify.Events)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
