// Package note extracts flight, passenger and payment details from the
// free-text note the accounting system attaches to each transaction.
//
// Parsing is a best-effort cascade of independent patterns. Each section is
// optional, and later patterns only run when the more specific ones found
// nothing. Parse never fails: a note nothing matches renders as its
// whitespace-collapsed text.
package note

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Flight is the itinerary part of a note
type Flight struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	FromCode  string `json:"from_code,omitempty"`
	ToCode    string `json:"to_code,omitempty"`
	TripType  string `json:"trip_type,omitempty"`
	Airline   string `json:"airline,omitempty"`
	Departure string `json:"departure,omitempty"`
}

// Route renders "Baghdad → Dubai", falling back to airport codes
func (f *Flight) Route() string {
	from, to := f.From, f.To
	if from == "" || to == "" {
		from, to = f.FromCode, f.ToCode
	}
	if from == "" || to == "" {
		return ""
	}
	return from + " → " + to
}

// Passengers holds fare-class counts after reconciliation with the names
// actually listed in the note.
type Passengers struct {
	Adults   int      `json:"adults"`
	Children int      `json:"children"`
	Infants  int      `json:"infants"`
	Names    []string `json:"names,omitempty"`
	// Declared is ADT+CHD+INF as written, before reconciliation
	Declared int `json:"declared"`
}

// Total returns the reconciled head count
func (p *Passengers) Total() int {
	return p.Adults + p.Children + p.Infants
}

// Payment is the transfer metadata of a payment note
type Payment struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// Note is the structured form of one transaction note
type Note struct {
	Raw        string      `json:"raw,omitempty"`
	Flight     *Flight     `json:"flight,omitempty"`
	Passengers *Passengers `json:"passengers,omitempty"`
	Payment    *Payment    `json:"payment,omitempty"`
	PNR        string      `json:"pnr,omitempty"`
	BookingID  string      `json:"booking_id,omitempty"`
	InvoiceNo  string      `json:"invoice_no,omitempty"`
}

// Matched reports whether any display section was recognized
func (n *Note) Matched() bool {
	return n.Flight != nil || n.Passengers != nil || n.Payment != nil
}

// Parse runs the full cascade over text. A pattern that fails part way
// leaves the note unmatched instead of failing the statement.
func Parse(text string) (n *Note) {
	clean := Collapse(text)
	n = &Note{Raw: clean}
	if clean == "" {
		return n
	}
	defer func() {
		if recover() != nil {
			n = &Note{Raw: clean}
		}
	}()

	var ref string
	n.Flight, ref = parseFlight(clean)
	n.Passengers = parsePassengers(clean)
	n.Payment = parsePayment(clean)

	n.PNR = ExtractPNR(clean)
	if n.PNR == "" && ValidPNR(ref) {
		n.PNR = strings.ToUpper(ref)
	}
	if m := bookingID.FindStringSubmatch(clean); m != nil {
		n.BookingID = m[1]
	}
	if m := invoiceNo.FindStringSubmatch(clean); m != nil {
		n.InvoiceNo = m[1]
	}

	return n
}

// Normalize returns the HTML fragment for a recognized note and the
// whitespace-collapsed text, unescaped, for anything else
func Normalize(text string) string {
	return Parse(text).Normalized()
}

// Collapse trims text and folds every whitespace run into one space
func Collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ValidPNR reports whether s is exactly six ASCII letters or digits
func ValidPNR(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// ExtractPNR finds a labeled PNR. Tokens that are not exactly six
// alphanumerics are treated as absent.
func ExtractPNR(text string) string {
	for _, re := range pnrLabeled {
		if m := re.FindStringSubmatch(text); m != nil && ValidPNR(m[1]) {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

func parseFlight(text string) (*Flight, string) {
	if m := flightFull.FindStringSubmatch(text); m != nil {
		g := func(name string) string { return strings.TrimSpace(m[flightFull.SubexpIndex(name)]) }
		f := &Flight{
			From:      g("from"),
			To:        g("to"),
			FromCode:  strings.ToUpper(g("fromCode")),
			ToCode:    strings.ToUpper(g("toCode")),
			TripType:  normalizeTrip(g("trip")),
			Airline:   g("airline"),
			Departure: joinDateTime(g("date"), g("time")),
		}
		return f, strings.TrimSpace(strings.Trim(g("ref"), ".:#- "))
	}

	f := &Flight{}
	if m := airlineLabel.FindStringSubmatch(text); m != nil {
		f.Airline = strings.TrimSpace(m[1])
	} else if m := airlineSuffix.FindStringSubmatch(text); m != nil {
		f.Airline = strings.TrimSpace(m[1])
	}

	if m := departureISO.FindStringSubmatch(text); m != nil {
		f.Departure = joinDateTime(m[1], m[2])
	} else if m := departureDMY.FindStringSubmatch(text); m != nil {
		f.Departure = joinDateTime(isoFromDMY(m[1], m[2], m[3]), m[4])
	}

	if m := routeCities.FindStringSubmatch(text); m != nil {
		f.From, f.To = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		f.FromCode, f.ToCode = strings.ToUpper(m[3]), strings.ToUpper(m[4])
	} else if m := routeCodePairs.FindStringSubmatch(text); m != nil {
		f.FromCode, f.ToCode = m[1], m[2]
	} else if m := routeCodeDash.FindStringSubmatch(text); m != nil && !notAirport[m[1]] && !notAirport[m[2]] {
		f.FromCode, f.ToCode = m[1], m[2]
	} else if f.Airline != "" || f.Departure != "" {
		// "X to Y" alone reads like a payment note unless other flight data is present
		if m := routeWords.FindStringSubmatch(text); m != nil {
			f.From, f.To = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}

	// A bare "return" is too common a word to open a flight section on its own
	if f.Route() == "" && f.Airline == "" && f.Departure == "" {
		return nil, ""
	}
	if m := tripType.FindStringSubmatch(text); m != nil {
		f.TripType = normalizeTrip(m[1])
	}
	return f, ""
}

func parsePassengers(text string) *Passengers {
	adt, hasAdt := firstCount(adultCount, text)
	chd, hasChd := firstCount(childCount, text)
	inf, hasInf := firstCount(infantCount, text)
	names := passengerNames(text)

	if !hasAdt && !hasChd && !hasInf && len(names) == 0 {
		return nil
	}

	p := &Passengers{
		Children: chd,
		Infants:  inf,
		Names:    names,
		Declared: adt + chd + inf,
	}
	p.Adults = Reconcile(adt, chd, inf, len(names))
	return p
}

// Reconcile returns the adult count that makes the declared fare classes agree
// with the number of named passengers. Children and infants are trusted over
// adults. With no names the declared adult count stands.
//
// The "ADT ≤ 1 with several names" case is a heuristic observed in agency
// data, not a verified business rule.
func Reconcile(adt, chd, inf, named int) int {
	if named == 0 || adt+chd+inf == named {
		return adt
	}
	if adt <= 1 && named > 1 && chd == 0 && inf == 0 {
		return named
	}
	if n := named - chd - inf; n > 0 {
		return n
	}
	return 0
}

func firstCount(patterns []*regexp.Regexp, text string) (int, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func passengerNames(text string) []string {
	var names []string
	for _, m := range namesTicketed.FindAllStringSubmatch(text, -1) {
		names = appendName(names, tidyName(m[1]))
	}
	if len(names) > 0 {
		return names
	}

	if m := namesListed.FindStringSubmatch(text); m != nil {
		for _, part := range nameListSplit.Split(m[1], -1) {
			names = appendName(names, tidyName(part))
		}
		if len(names) > 0 {
			return names
		}
	}

	for _, m := range namesGDS.FindAllStringSubmatch(text, -1) {
		names = appendName(names, strings.TrimSpace(m[2])+" "+m[1])
	}
	return names
}

func parsePayment(text string) *Payment {
	p := &Payment{
		Date:        firstCapture(transferDate, text),
		Description: cleanFree(firstCapture(transferDesc, text)),
		SubmittedBy: cleanFree(firstCapture(submittedBy, text)),
	}
	if p.Date == "" && p.Description == "" && p.SubmittedBy == "" {
		return nil
	}
	if strings.Contains(p.Date, "/") {
		parts := strings.Split(p.Date, "/")
		p.Date = isoFromDMY(parts[0], parts[1], parts[2])
	}
	return p
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// cleanFree strips encoding debris and separators from a free-text capture
func cleanFree(s string) string {
	s = mojibake.ReplaceAllString(s, " ")
	return strings.Trim(Collapse(s), " ,;.-|:")
}

// three-letter tokens that look like airport pairs but are not
var notAirport = map[string]bool{
	"USD": true, "IQD": true, "EUR": true, "ADT": true, "CHD": true, "INF": true, "PNR": true,
}

var nameStopwords = map[string]bool{
	"PASSENGER": true, "PASSENGERS": true, "PAX": true, "NAME": true, "NAMES": true,
	"ADT": true, "CHD": true, "INF": true, "MR": true, "MRS": true, "MS": true,
	"MISS": true, "MSTR": true,
}

// tidyName drops label words in front of a name and, when the capture mixes
// case, keeps only the trailing upper-case run ("Fly Airline JOHN SMITH").
func tidyName(s string) string {
	words := strings.Fields(strings.Trim(s, " ,;.-"))
	for len(words) > 0 && nameStopwords[strings.ToUpper(words[0])] {
		words = words[1:]
	}
	if len(words) == 0 {
		return ""
	}

	if isUpperWord(words[len(words)-1]) {
		start := len(words) - 1
		for start > 0 && isUpperWord(words[start-1]) {
			start--
		}
		words = words[start:]
	}
	return strings.Join(words, " ")
}

func isUpperWord(w string) bool {
	hasUpper := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

func appendName(names []string, name string) []string {
	if name == "" {
		return names
	}
	for _, existing := range names {
		if strings.EqualFold(existing, name) {
			return names
		}
	}
	return append(names, name)
}

func normalizeTrip(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	switch s {
	case "oneway":
		return "one-way"
	case "roundtrip":
		return "round-trip"
	case "multicity":
		return "multi-city"
	}
	return s
}

func joinDateTime(date, clock string) string {
	if clock == "" {
		return date
	}
	if len(clock) == 4 {
		clock = "0" + clock
	}
	return date + " " + clock
}

func isoFromDMY(day, month, year string) string {
	pad := func(s string) string {
		if len(s) == 1 {
			return "0" + s
		}
		return s
	}
	return year + "-" + pad(month) + "-" + pad(day)
}
