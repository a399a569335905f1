package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"adboard-backend/internal/domain"
)

const (
	captionLimit = 1024
	messageLimit = 4096
	// titleLimit and fieldLimit keep the header and detail lines well inside
	// captionLimit, leaving the rest for the ad text.
	titleLimit = 128
	fieldLimit = 128
)

// FormatAd renders the public post for an ad as Telegram HTML.
func FormatAd(ad *domain.Ad) string {
	return formatAd(ad, messageLimit)
}

// formatAd renders an ad whose visible text fits in limit runes. Telegram
// counts limits after entity parsing, so plain fields are cut before they are
// escaped and the ad text absorbs whatever the header and details leave over.
func formatAd(ad *domain.Ad, limit int) string {
	title := ad.Title
	if title == "" {
		title = "Listing"
	}
	title = truncate(title, titleLimit)

	var details []string
	if ad.Price.IsPositive() {
		details = append(details, fmt.Sprintf("Price: %s RUB", ad.Price.StringFixed(2)))
	}
	if ad.Quantity > 1 {
		details = append(details, fmt.Sprintf("Quantity: %d", ad.Quantity))
	}
	if ad.Category != "" {
		category := ad.Category
		if ad.Subcategory != "" {
			category += " / " + ad.Subcategory
		}
		details = append(details, "Category: "+truncate(category, fieldLimit))
	}
	if ad.City != "" {
		details = append(details, "City: "+truncate(ad.City, fieldLimit))
	}
	if ad.Contact != "" {
		details = append(details, "Contact: "+truncate(ad.Contact, fieldLimit))
	}
	tail := strings.Join(details, "\n")

	// title, newline, text, blank line, details
	budget := limit - utf8.RuneCountInString(title) - 1 - utf8.RuneCountInString(tail) - 2
	text := ""
	if budget > 0 {
		text = truncate(ad.Text, budget)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(text))
	if tail != "" {
		b.WriteString("\n\n" + html.EscapeString(tail))
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func buyCallback(adID int64) string     { return fmt.Sprintf("buy_ad_%d", adID) }
func detailsCallback(adID int64) string { return fmt.Sprintf("details_ad_%d", adID) }
