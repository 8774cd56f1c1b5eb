// Package lead holds the pure decision logic of the lead funnel: when a CRM
// record counts as complete, how funnel sources merge, and how Brazilian
// phone numbers normalize. Everything here is side-effect free; persistence
// lives in internal/store.
package lead

import (
	"strings"

	"github.com/mtmsolution/site/internal/model"
)

// Funnel sources. SourceLogin is the default entry point; SourceAmbos is the
// sentinel once two distinct meaningful sources have been observed.
const (
	SourceLogin       = "login"
	SourceMateriais   = "materiais"
	SourceNaoSabe     = "nao-sabe"
	SourceDiagnostico = "diagnostico"
	SourceAmbos       = "ambos"
)

// State is the gating state derived from a lead row. There is no persisted
// state column; this is recomputed from the record on every request.
type State int

const (
	StateIncomplete State = iota
	StateComplete
)

// IsComplete reports whether the lead satisfies the gating requirement:
// name, company, and normalized phone all present.
func IsComplete(l *model.Lead) bool {
	if l == nil {
		return false
	}
	return l.Name != "" && l.Company != "" && l.PhoneE164 != ""
}

// StateOf derives the gating state from a lead record (nil means no record).
func StateOf(l *model.Lead) State {
	if IsComplete(l) {
		return StateComplete
	}
	return StateIncomplete
}

// ResolveSource merges an incoming funnel source into the current one.
// The default source never overrides a specific one; two distinct specific
// sources collapse to SourceAmbos. The merge is commutative and idempotent.
func ResolveSource(current, incoming string) string {
	if incoming == "" || incoming == SourceLogin {
		if current == "" {
			return SourceLogin
		}
		return current
	}
	if current == "" || current == SourceLogin {
		return incoming
	}
	if current == incoming {
		return current
	}
	return SourceAmbos
}

// NormalizePhone converts free-text input to a +55-prefixed E.164-like
// string. Non-digits are stripped, a leading 55 country code is dropped, and
// only 10-digit (fixed) or 11-digit (mobile) national numbers are accepted.
// Returns "" for anything else; callers must treat "" as a validation
// failure.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	digits := b.String()
	// Only strip the country code when what remains is a full national
	// number; a 10-digit number may legitimately start with 55.
	if strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13) {
		digits = digits[2:]
	}
	if len(digits) != 10 && len(digits) != 11 {
		return ""
	}
	return "+55" + digits
}

// InferSource maps a requested path to the funnel source it implies.
func InferSource(path string) string {
	switch {
	case path == "/materiais" || strings.HasPrefix(path, "/materiais/"):
		return SourceMateriais
	case path == "/diagnostico" || strings.HasPrefix(path, "/diagnostico/"):
		return SourceDiagnostico
	case path == "/nao-sabe" || strings.HasPrefix(path, "/nao-sabe/"):
		return SourceNaoSabe
	default:
		return SourceLogin
	}
}
