package mailer

// Message is a rendered outgoing email.
type Message struct {
	ToName    string
	ToEmail   string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Mailer delivers messages to a provider. Delivery failures are returned to
// the caller for logging and retry; the mailer itself never retries.
type Mailer interface {
	Send(msg Message) error
}
