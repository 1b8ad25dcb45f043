package attendance

import (
	"strings"
	"unicode"

	"github.com/SandLosT/Attendant/pkg/utils"
)

// Intent is a coarse routing hint extracted from customer text.
type Intent string

const (
	IntentNone     Intent = ""
	IntentNewQuote Intent = "new_quote"
	IntentCancel   Intent = "cancel"
)

var (
	cancelKeywords = []string{
		"nao quero", "deixa", "deixa pra la", "cancela", "cancelar", "desisto", "esquece",
	}
	newQuoteKeywords = []string{
		"novo", "nova", "orcamento", "orcamentos", "foto", "fotos", "amassado", "amassados", "outro carro",
	}
	affirmativeKeywords = []string{
		"sim", "pode", "pode ser", "ok", "fechado", "combinado", "beleza", "claro", "isso", "serve", "perfeito",
	}
)

// DetectIntent matches whole words after folding accents and case.
// Cancel wins over new-quote when both appear.
func DetectIntent(text string) Intent {
	padded := " " + wordsOnly(utils.Fold(text)) + " "
	if containsAny(padded, cancelKeywords) {
		return IntentCancel
	}
	if containsAny(padded, newQuoteKeywords) {
		return IntentNewQuote
	}
	return IntentNone
}

func containsAny(padded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}

// wordsOnly collapses punctuation and runs of spaces into single spaces.
func wordsOnly(s string) string {
	f := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(f, " ")
}

// Affirmative reports whether text accepts an offer ("sim", "pode ser").
// A cancel keyword always wins.
func Affirmative(text string) bool {
	padded := " " + wordsOnly(utils.Fold(text)) + " "
	if containsAny(padded, cancelKeywords) {
		return false
	}
	return containsAny(padded, affirmativeKeywords)
}
