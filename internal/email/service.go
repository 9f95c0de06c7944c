package email

import (
	"fmt"
	"net/smtp"

	"github.com/example/shop-order-backend/internal/domain/order"
)

// Service sends transactional order emails over SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{host: host, port: port, from: from}
}

// SendOrderConfirmation confirms a newly placed order.
func (s *Service) SendOrderConfirmation(to, trackingNumber string, total int64, items []order.Item) error {
	subject := fmt.Sprintf("Order confirmed - %s", trackingNumber)
	return s.send(to, subject, BuildOrderConfirmationBody(trackingNumber, total, items))
}

// SendPaymentReceived confirms a gateway payment.
func (s *Service) SendPaymentReceived(to, trackingNumber string, total int64, transactionNo string) error {
	subject := fmt.Sprintf("Payment received - %s", trackingNumber)
	return s.send(to, subject, BuildPaymentReceivedBody(trackingNumber, total, transactionNo))
}

// SendOrderCancelled notifies the customer of a cancellation.
func (s *Service) SendOrderCancelled(to, trackingNumber, reason string) error {
	subject := fmt.Sprintf("Order cancelled - %s", trackingNumber)
	return s.send(to, subject, BuildOrderCancelledBody(trackingNumber, reason))
}

// SendOrderDelivered confirms delivery.
func (s *Service) SendOrderDelivered(to, trackingNumber string) error {
	subject := fmt.Sprintf("Order delivered - %s", trackingNumber)
	return s.send(to, subject, BuildOrderDeliveredBody(trackingNumber))
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
