package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Template selects one of the known templates; Data feeds its placeholders.
type EmailJob struct {
	To       string         `json:"to"`
	Template string         `json:"template"` // "welcome", "password_changed"
	Data     map[string]any `json:"data,omitempty"`
}
