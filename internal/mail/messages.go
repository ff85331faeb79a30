package mail

import "fmt"

// SendTemporaryPassword delivers a generated one-time password for the
// reset flow. Plain text on purpose: the password forces a change on
// first login either way.
func SendTemporaryPassword(sender Sender, toEmail string, tempPassword string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Your temporary password is: %s\n\n"+
			"You will be asked to choose a new password on your next sign-in.\n"+
			"If you did not request this, you can ignore this message.\n",
		tempPassword,
	)
	return sender.Send(&Message{
		To:      []string{toEmail},
		Subject: "Your temporary password",
		Body:    body,
	})
}
