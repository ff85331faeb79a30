package mail

type Message struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	IsHTML      bool
	Attachments []string
}

type Sender interface {
	Send(message *Message) error
}

// NopSender discards messages. Used when no mail backend is configured.
type NopSender struct{}

func (NopSender) Send(message *Message) error {
	return nil
}
