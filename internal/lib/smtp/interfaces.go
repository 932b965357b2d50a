// Package smtp доставляет письма маркетплейса (модерация объявлений, сброс пароля,
// напоминания об истечении) через SMTP с STARTTLS.
package smtp

import "io"

// Session одна SMTP-сессия: конверт письма и его тело.
// Каждое уведомление отправляется в отдельной сессии.
type Session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer открывает сессии доставки и знает адрес, от имени которого уходят уведомления.
type Mailer interface {
	Connect() (Session, error)
	From() string
}
