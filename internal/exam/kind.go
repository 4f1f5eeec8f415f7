package exam

import "strings"

// Kind is the canonical question type tag.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindTrueFalse      Kind = "true_false"
	KindShortAnswer    Kind = "short_answer"
	KindOpenQuestion   Kind = "open_question"
	KindFlashcard      Kind = "flashcard"
	KindCloze          Kind = "cloze"

	// KindUnrecognized is what ResolveKind returns for an unknown alias.
	// It never appears on a QuestionRecord.
	KindUnrecognized Kind = "unrecognized"
)

// Kinds lists the canonical kinds in assembly order.
var Kinds = []Kind{
	KindMultipleChoice,
	KindTrueFalse,
	KindShortAnswer,
	KindOpenQuestion,
	KindFlashcard,
	KindCloze,
}

// IsCanonical reports whether k is one of the canonical kinds.
func (k Kind) IsCanonical() bool {
	for _, c := range Kinds {
		if k == c {
			return true
		}
	}
	return false
}

// IsClosed reports whether answers to k are checked by comparison only.
func (k Kind) IsClosed() bool {
	return k == KindMultipleChoice || k == KindTrueFalse
}

// IsOpen reports whether answers to k need rubric scoring.
func (k Kind) IsOpen() bool {
	return k == KindShortAnswer || k == KindOpenQuestion
}

// DefaultPoints returns the points a record of kind k is worth unless
// the caller overrides them.
func (k Kind) DefaultPoints() int {
	switch k {
	case KindMultipleChoice:
		return 3
	case KindTrueFalse:
		return 2
	case KindShortAnswer:
		return 4
	case KindOpenQuestion:
		return 6
	case KindFlashcard:
		return 1
	case KindCloze:
		return 2
	default:
		return 1
	}
}

// Label returns a short human-readable name for k.
func (k Kind) Label() string {
	switch k {
	case KindMultipleChoice:
		return "Multiple choice"
	case KindTrueFalse:
		return "True / false"
	case KindShortAnswer:
		return "Short answer"
	case KindOpenQuestion:
		return "Open question"
	case KindFlashcard:
		return "Flashcard"
	case KindCloze:
		return "Cloze"
	default:
		return "Unrecognized"
	}
}

// kindAliases maps folded type spellings onto canonical kinds.
// Keys are produced by foldAlias.
var kindAliases = map[string]Kind{
	// multiple choice
	"multiple_choice":   KindMultipleChoice,
	"multiplechoice":    KindMultipleChoice,
	"mcq":               KindMultipleChoice,
	"mc":                KindMultipleChoice,
	"choice":            KindMultipleChoice,
	"single_choice":     KindMultipleChoice,
	"quiz":              KindMultipleChoice,
	"scelta_multipla":   KindMultipleChoice,
	"risposta_multipla": KindMultipleChoice,
	"opcion_multiple":   KindMultipleChoice,
	"choix_multiple":    KindMultipleChoice,

	// true / false
	"true_false":      KindTrueFalse,
	"truefalse":       KindTrueFalse,
	"tf":              KindTrueFalse,
	"boolean":         KindTrueFalse,
	"bool":            KindTrueFalse,
	"yes_no":          KindTrueFalse,
	"vero_falso":      KindTrueFalse,
	"verdadero_falso": KindTrueFalse,
	"vrai_faux":       KindTrueFalse,

	// short answer
	"short_answer":    KindShortAnswer,
	"shortanswer":     KindShortAnswer,
	"short":           KindShortAnswer,
	"short_response":  KindShortAnswer,
	"risposta_breve":  KindShortAnswer,
	"domanda_breve":   KindShortAnswer,
	"respuesta_corta": KindShortAnswer,
	"reponse_courte":  KindShortAnswer,

	// open question
	"open_question":    KindOpenQuestion,
	"openquestion":     KindOpenQuestion,
	"open":             KindOpenQuestion,
	"open_ended":       KindOpenQuestion,
	"essay":            KindOpenQuestion,
	"long_answer":      KindOpenQuestion,
	"free_text":        KindOpenQuestion,
	"domanda_aperta":   KindOpenQuestion,
	"risposta_aperta":  KindOpenQuestion,
	"pregunta_abierta": KindOpenQuestion,
	"question_ouverte": KindOpenQuestion,

	// flashcard
	"flashcard":  KindFlashcard,
	"flash_card": KindFlashcard,
	"card":       KindFlashcard,

	// cloze
	"cloze":             KindCloze,
	"fill_in_the_blank": KindCloze,
	"fill_in_blank":     KindCloze,
	"fill_in":           KindCloze,
	"fill_blank":        KindCloze,
	"gap":               KindCloze,
	"gap_fill":          KindCloze,
	"completamento":     KindCloze,
}

// ResolveKind maps a type spelling onto its canonical kind. Unknown
// spellings resolve to KindUnrecognized. Canonical names resolve to
// themselves.
func ResolveKind(alias string) Kind {
	if k, ok := kindAliases[foldAlias(alias)]; ok {
		return k
	}
	return KindUnrecognized
}

// foldAlias lower-cases s, strips accents we commonly see in localized
// spellings, and collapses separators to a single underscore.
func foldAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentFolder.Replace(s)

	var b strings.Builder
	sep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		default:
			sep = true
		}
	}
	return b.String()
}

var accentFolder = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a",
	"è", "e", "é", "e", "ê", "e",
	"ì", "i", "í", "i",
	"ò", "o", "ó", "o", "ô", "o",
	"ù", "u", "ú", "u", "û", "u",
	"ç", "c", "ñ", "n",
)
