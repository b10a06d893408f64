// Package mail delivers due-date reminders by email.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/elibrary/elibrary-server/internal/notify"
)

// Message is a rendered reminder ready for any transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Renderer turns reminders into messages. Amounts are formatted in Currency.
type Renderer struct {
	FineRatePerDay int64
	Currency       currency.Unit
	Location       *time.Location
}

// NewRenderer creates a renderer. An unknown ISO 4217 code is an error.
func NewRenderer(fineRatePerDay int64, currencyCode string, loc *time.Location) (*Renderer, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{FineRatePerDay: fineRatePerDay, Currency: unit, Location: loc}, nil
}

var reminderTemplate = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #1a365d;">Book Return Reminder</h2>
<p>Dear {{.Name}},</p>
<p>This is a reminder that your borrowed book is due soon:</p>
<ul>
<li><strong>Book:</strong> {{.Title}}</li>
<li><strong>Author:</strong> {{.Author}}</li>
<li><strong>Due Date:</strong> {{.DueDate}}</li>
<li><strong>Time Remaining:</strong> {{.Remaining}}</li>
</ul>
<p>Please return the book on time to avoid a late fee of {{.Rate}} per day.</p>
<p>Thank you for using our E-Library!</p>
<p style="color: #666; font-size: 12px;">This is an automated message from the E-Library Management System. Please do not reply to this email.</p>
</div>`))

// Render builds the subject and both bodies for a reminder.
func (r *Renderer) Render(rem notify.Reminder) (*Message, error) {
	remaining := days(rem.DaysLeft)

	var html bytes.Buffer
	err := reminderTemplate.Execute(&html, map[string]string{
		"Name":      rem.BorrowerName,
		"Title":     rem.BookTitle,
		"Author":    rem.BookAuthor,
		"DueDate":   rem.DueDate.In(r.Location).Format("January 2, 2006"),
		"Remaining": remaining,
		"Rate":      r.FormatAmount(r.FineRatePerDay),
	})
	if err != nil {
		return nil, fmt.Errorf("render reminder: %w", err)
	}

	text, err := htmltomarkdown.ConvertString(html.String())
	if err != nil {
		return nil, fmt.Errorf("convert reminder to text: %w", err)
	}

	return &Message{
		To:      rem.BorrowerEmail,
		Subject: fmt.Sprintf("Return Reminder: %s is due in %s", rem.BookTitle, remaining),
		HTML:    html.String(),
		Text:    strings.TrimSpace(text),
	}, nil
}

// FormatAmount renders whole currency units with the currency symbol, e.g. "₹ 5".
func (r *Renderer) FormatAmount(units int64) string {
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.NarrowSymbol(r.Currency.Amount(units)))
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
