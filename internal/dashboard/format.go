package dashboard

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chabakapro/admin/internal/model"
)

var frenchShortMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// RelativeAge はcreatedAtからnowまでの経過時間をフランス語の相対表記で返す。
// 7日以上経過している場合は「2 janv. 2006」形式の日付を返す。
func RelativeAge(createdAt, now time.Time) string {
	diff := now.Sub(createdAt)
	if diff < 0 {
		diff = 0
	}

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("Il y a %d min", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("Il y a %dh", int(diff/time.Hour))
	case diff < weekWindow:
		return fmt.Sprintf("Il y a %dj", int(diff/(24*time.Hour)))
	}

	local := createdAt.In(now.Location())
	return fmt.Sprintf("%d %s %d", local.Day(), frenchShortMonths[local.Month()-1], local.Year())
}

// StatusLabel はお問い合わせの状態の表示ラベルを返す。
func StatusLabel(status model.ContactStatus) string {
	switch status {
	case model.StatusPending:
		return "En attente"
	case model.StatusProcessed:
		return "Traité"
	default:
		return "Fermé"
	}
}

// UrgencyLabel は緊急度の表示ラベルを返す。未設定は "Normal"。
func UrgencyLabel(urgency string) string {
	if urgency == "" {
		return "Normal"
	}
	return urgency
}

// BudgetLabel は予算の表示ラベルを返す。未設定は "Non spécifié"。
func BudgetLabel(budget string) string {
	if budget == "" {
		return "Non spécifié"
	}
	return budget
}

// ContactReplyLink はお問い合わせへの返信用mailtoリンクを返す。
func ContactReplyLink(c model.ContactMessage) string {
	subject := c.Subject
	if subject == "" {
		subject = "Votre message"
	}
	return mailtoLink(c.Email, "Re: "+subject)
}

// QuoteReplyLink は見積もり依頼への返信用mailtoリンクを返す。
func QuoteReplyLink(q model.QuoteRequest) string {
	return mailtoLink(q.Email, "Re: Votre demande de devis")
}

// PhoneLink はtel:リンクを返す。電話番号が空なら空文字。
func PhoneLink(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	return "tel:" + strings.ReplaceAll(phone, " ", "")
}

// WhatsAppLink は数字以外を除いた電話番号でwa.meリンクを返す。
// 数字が1つもなければ空文字。
func WhatsAppLink(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + b.String()
}

func mailtoLink(email, subject string) string {
	if email == "" {
		return ""
	}
	return "mailto:" + email + "?subject=" + url.PathEscape(subject)
}
