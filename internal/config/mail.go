package config

// MailConfig holds SMTP settings for the welcome mail sent by the account
// event consumer.  An empty Host disables mail.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough is configured to send mail.
func (m MailConfig) Enabled() bool { return m.Host != "" && m.From != "" }

// LoadMailConfig reads SMTP_* variables.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:     getenv("SMTP_HOST", ""),
		Port:     envInt("SMTP_PORT", 587),
		Username: getenv("SMTP_USERNAME", ""),
		Password: getenv("SMTP_PASSWORD", ""),
		From:     getenv("SMTP_FROM", ""),
	}
}
