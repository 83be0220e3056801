package shift

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW ENTRY - Stored shapes of a day assignment
// =============================================================================

// RawEntry is a day assignment as it is stored. It decodes from either a bare
// JSON string (legacy shape) or a JSON object:
//
//	"Vacaciones"
//	{"tipo": "Presencial", "horaInicio": "08:00", "horaFin": "17:00"}
//	{"tipo": "Teletrabajo y Presencial",
//	 "horaInicioTele": "07:00", "horaFinTele": "10:00",
//	 "horaInicioPres": "11:00", "horaFinPres": "16:00"}
type RawEntry struct {
	Legacy bool `json:"-"`

	Tipo           string   `json:"tipo"`
	HoraInicio     string   `json:"horaInicio,omitempty"`
	HoraFin        string   `json:"horaFin,omitempty"`
	HoraInicioTele string   `json:"horaInicioTele,omitempty"`
	HoraFinTele    string   `json:"horaFinTele,omitempty"`
	HoraInicioPres string   `json:"horaInicioPres,omitempty"`
	HoraFinPres    string   `json:"horaFinPres,omitempty"`
	Horas          *float64 `json:"horas,omitempty"`
	Nota           string   `json:"nota,omitempty"`
}

type rawEntryObject RawEntry

// UnmarshalJSON accepts both the legacy string shape and the object shape.
func (r *RawEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var kind string
		if err := json.Unmarshal(data, &kind); err != nil {
			return err
		}
		*r = RawEntry{Legacy: true, Tipo: kind}
		return nil
	}
	var obj rawEntryObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = RawEntry(obj)
	r.Legacy = false
	return nil
}

// MarshalJSON writes legacy entries back as bare strings.
func (r RawEntry) MarshalJSON() ([]byte, error) {
	if r.Legacy {
		return json.Marshal(r.Tipo)
	}
	return json.Marshal(rawEntryObject(r))
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize converts a stored entry into its canonical form.
//
// Rules:
//   - Legacy strings become a kind with zero hours and no range.
//   - Non-accruing kinds hold zero hours whatever their stored fields say.
//   - Hybrid entries sum independently derived telework and presence hours,
//     unless an explicit total is stored.
//   - Other kinds trust an explicit total, else derive it from the range,
//     else hold zero.
//
// Malformed clock strings fail with ErrInvalidTime; they are never read as zero.
// A non-finite explicit total fails with ErrInvalidHours.
func Normalize(raw RawEntry) (DayEntry, error) {
	entry := DayEntry{Kind: Kind(raw.Tipo), Note: raw.Nota, Hours: decimal.Zero}
	if raw.Legacy {
		return entry, nil
	}

	var err error
	if entry.Kind.IsHybrid() {
		if entry.Tele, err = optionalRange("horaInicioTele", raw.HoraInicioTele, "horaFinTele", raw.HoraFinTele); err != nil {
			return DayEntry{}, err
		}
		if entry.Pres, err = optionalRange("horaInicioPres", raw.HoraInicioPres, "horaFinPres", raw.HoraFinPres); err != nil {
			return DayEntry{}, err
		}
	} else {
		if entry.Range, err = optionalRange("horaInicio", raw.HoraInicio, "horaFin", raw.HoraFin); err != nil {
			return DayEntry{}, err
		}
	}

	switch {
	case !entry.Kind.Accrues():
		entry.Hours = decimal.Zero
	case raw.Horas != nil:
		if math.IsNaN(*raw.Horas) || math.IsInf(*raw.Horas, 0) {
			return DayEntry{}, &ValidationError{Field: "horas", Value: fmt.Sprint(*raw.Horas), Err: ErrInvalidHours}
		}
		entry.Hours = decimal.NewFromFloat(*raw.Horas)
		entry.ExplicitHours = true
	default:
		entry.Hours = entry.derivedHours()
	}
	return entry, nil
}

// NewEntry normalizes an entry that is about to be created or overwritten.
// Beyond Normalize, it rejects negative explicit hours and kinds whose
// required time range is missing.
func NewEntry(raw RawEntry) (DayEntry, error) {
	if raw.Tipo == "" {
		return DayEntry{}, &ValidationError{Field: "tipo", Err: ErrMissingKind}
	}
	if raw.Horas != nil && *raw.Horas < 0 {
		return DayEntry{}, &ValidationError{Field: "horas", Value: fmt.Sprint(*raw.Horas), Err: ErrInvalidHours}
	}
	entry, err := Normalize(raw)
	if err != nil {
		return DayEntry{}, err
	}
	if !entry.Kind.RequiresRange() {
		return entry, nil
	}
	if entry.Kind.IsHybrid() {
		if entry.Tele == nil {
			return DayEntry{}, &ValidationError{Field: "horaInicioTele/horaFinTele", Err: ErrMissingTimeRange}
		}
		if entry.Pres == nil {
			return DayEntry{}, &ValidationError{Field: "horaInicioPres/horaFinPres", Err: ErrMissingTimeRange}
		}
		return entry, nil
	}
	if entry.Range == nil {
		return DayEntry{}, &ValidationError{Field: "horaInicio/horaFin", Err: ErrMissingTimeRange}
	}
	return entry, nil
}

// Recompute returns the entry with hours derived from its ranges, ignoring
// any explicit stored total. Used for consistency checks on hybrid entries.
func Recompute(e DayEntry) DayEntry {
	if !e.Kind.Accrues() {
		e.Hours = decimal.Zero
		return e
	}
	if e.Range == nil && e.Tele == nil && e.Pres == nil {
		return e
	}
	e.Hours = e.derivedHours()
	e.ExplicitHours = false
	return e
}

func (e DayEntry) derivedHours() decimal.Decimal {
	total := decimal.Zero
	for _, r := range []*Range{e.Range, e.Tele, e.Pres} {
		if r != nil {
			total = total.Add(r.Hours())
		}
	}
	return total
}

// optionalRange parses a range when both ends are present. A lone start or
// end is treated as no range; a malformed value is an error.
func optionalRange(startField, start, endField, end string) (*Range, error) {
	var s, e Clock
	var err error
	if start != "" {
		if s, err = ParseClock(start); err != nil {
			return nil, &ValidationError{Field: startField, Value: start, Err: ErrInvalidTime}
		}
	}
	if end != "" {
		if e, err = ParseClock(end); err != nil {
			return nil, &ValidationError{Field: endField, Value: end, Err: ErrInvalidTime}
		}
	}
	if start == "" || end == "" {
		return nil, nil
	}
	return &Range{Start: s, End: e}, nil
}

// =============================================================================
// DENORMALIZATION - Canonical entry back to the stored object shape
// =============================================================================

// Raw converts a canonical entry to the object shape written to storage.
// Hours are written when they were explicit, or when no range is left to
// derive them from on read.
func (e DayEntry) Raw() RawEntry {
	raw := RawEntry{Tipo: string(e.Kind), Nota: e.Note}
	if e.Range != nil {
		raw.HoraInicio, raw.HoraFin = e.Range.Start.String(), e.Range.End.String()
	}
	if e.Tele != nil {
		raw.HoraInicioTele, raw.HoraFinTele = e.Tele.Start.String(), e.Tele.End.String()
	}
	if e.Pres != nil {
		raw.HoraInicioPres, raw.HoraFinPres = e.Pres.Start.String(), e.Pres.End.String()
	}
	noRange := e.Range == nil && e.Tele == nil && e.Pres == nil
	if e.Kind.Accrues() && (e.ExplicitHours || (noRange && !e.Hours.IsZero())) {
		h := e.Hours.InexactFloat64()
		raw.Horas = &h
	}
	return raw
}

// String renders the entry for notification bodies, e.g. "Presencial 08:00-17:00".
func (e DayEntry) String() string {
	switch {
	case e.Range != nil:
		return fmt.Sprintf("%s %s-%s", e.Kind, e.Range.Start, e.Range.End)
	case e.Tele != nil && e.Pres != nil:
		return fmt.Sprintf("%s (tele %s-%s, pres %s-%s)", e.Kind, e.Tele.Start, e.Tele.End, e.Pres.Start, e.Pres.End)
	default:
		return string(e.Kind)
	}
}
