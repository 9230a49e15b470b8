// Package sms simulates SMS delivery: every message is printed to the
// server log instead of being handed to a provider. Sending never fails.
package sms

import (
	"log"
	"strings"
)

// Test credentials for demos and automated tests. The test number bypasses
// the persistent OTP store entirely.
const (
	TestPhone = "+11111111111"
	TestCode  = "000000"
)

const divider = "═══════════════════════════════════════════"

// Sender delivers messages. The console implementation is the only one; the
// interface exists so handlers and services can be tested with a recorder.
type Sender interface {
	Send(to, message string) error
}

// ConsoleSender logs messages instead of delivering them.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender { return &ConsoleSender{} }

func (s *ConsoleSender) Send(to, message string) error {
	if !strings.HasPrefix(to, "+") {
		to = "+" + to
	}
	log.Println(divider)
	log.Println("SMS SIMULADO")
	log.Printf("Para: %s", to)
	log.Printf("Mensaje: %s", message)
	log.Println(divider)
	return nil
}

// LogOTP prints an issued one-time code the way a delivery would look.
func LogOTP(sender Sender, phone, code string, isTest bool) {
	label := "Código de desarrollo"
	if isTest {
		label = "Código de prueba"
	}
	_ = sender.Send(phone, label+": "+code)
}

// Message generators, Spanish copy kept from the product.

func ProviderNewRequestMessage(providerName, studentName, subject string) string {
	if providerName == "" {
		providerName = "Tutor"
	}
	if studentName == "" {
		studentName = "Un estudiante"
	}
	return "¡Hola " + providerName + "! " + studentName + " necesita ayuda con " + subject +
		". Revisa tu dashboard para más detalles. ¡Gracias por ser parte de Chamba Tutorías!"
}

func ClientConfirmationMessage(clientName, providerName, subject string) string {
	if clientName == "" {
		clientName = "Estudiante"
	}
	if providerName == "" {
		providerName = "El tutor"
	}
	return "¡Hola " + clientName + "! " + providerName + " ha aceptado tu solicitud de tutoría en " +
		subject + ". Revisa los detalles en tu dashboard. ¡Que tengas una excelente sesión!"
}

func ClientRejectionMessage(clientName, subject string) string {
	if clientName == "" {
		clientName = "Estudiante"
	}
	return "¡Hola " + clientName + "! Por ahora ningún tutor está disponible para tu solicitud de " +
		subject + ". Puedes volver a elegir tutores desde tu solicitud. ¡Gracias por usar Chamba Tutorías!"
}
