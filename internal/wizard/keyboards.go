package wizard

import (
	"strconv"

	"github.com/konverner/budget-telegram-bot/internal/bus"
	"github.com/konverner/budget-telegram-bot/internal/taxonomy"
)

// Callback payloads understood by the wizard.
const (
	payloadCategoryPrefix    = "cat_"
	payloadSubcategoryPrefix = "subcat_"
	payloadLanguagePrefix    = "lang_"
	payloadSkipComment       = "skip_comment"
	payloadCancel            = "cancel_transaction"
)

// categoryKeyboard lists one category per row plus a cancel button.
func (w *Wizard) categoryKeyboard(categories []taxonomy.Category, lang string) bus.Keyboard {
	kb := make(bus.Keyboard, 0, len(categories)+1)
	for _, cat := range categories {
		kb = append(kb, []bus.Button{{
			Text: cat.Name,
			Data: payloadCategoryPrefix + strconv.Itoa(cat.ID),
		}})
	}
	return append(kb, w.cancelRow(lang))
}

func (w *Wizard) subcategoryKeyboard(subs []taxonomy.Subcategory, lang string) bus.Keyboard {
	kb := make(bus.Keyboard, 0, len(subs)+1)
	for _, sub := range subs {
		kb = append(kb, []bus.Button{{
			Text: sub.Name,
			Data: payloadSubcategoryPrefix + strconv.Itoa(sub.ID),
		}})
	}
	return append(kb, w.cancelRow(lang))
}

// languageKeyboard offers every available language, each labelled in
// its own tongue.
func (w *Wizard) languageKeyboard() bus.Keyboard {
	langs := w.strings.Languages()
	kb := make(bus.Keyboard, 0, len(langs))
	for _, lang := range langs {
		kb = append(kb, []bus.Button{{
			Text: w.strings.StringFor(lang, "language_name", nil),
			Data: payloadLanguagePrefix + lang,
		}})
	}
	return kb
}

func (w *Wizard) cancelKeyboard(lang string) bus.Keyboard {
	return bus.Keyboard{w.cancelRow(lang)}
}

func (w *Wizard) skipKeyboard(lang string) bus.Keyboard {
	return bus.Keyboard{
		{{Text: w.strings.StringFor(lang, "skip_button", nil), Data: payloadSkipComment}},
	}
}

func (w *Wizard) cancelRow(lang string) []bus.Button {
	return []bus.Button{{Text: w.strings.StringFor(lang, "cancel_button", nil), Data: payloadCancel}}
}
