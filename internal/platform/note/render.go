package note

import (
	"html"
	"strconv"
	"strings"
)

// Fragment renders the recognized sections as an HTML fragment. An
// unmatched note renders as its escaped text so it can be embedded as is.
func (n *Note) Fragment() string {
	if !n.Matched() {
		return html.EscapeString(n.Raw)
	}

	var b strings.Builder
	if f := n.Flight; f != nil {
		b.WriteString(`<div class="note-flight">`)
		span(&b, "route", f.Route())
		span(&b, "trip", f.TripType)
		span(&b, "airline", f.Airline)
		span(&b, "departure", f.Departure)
		b.WriteString(`</div>`)
	}

	if p := n.Passengers; p != nil {
		b.WriteString(`<div class="note-passengers">`)
		span(&b, "adt", "ADT "+strconv.Itoa(p.Adults))
		if p.Children > 0 {
			span(&b, "chd", "CHD "+strconv.Itoa(p.Children))
		}
		if p.Infants > 0 {
			span(&b, "inf", "INF "+strconv.Itoa(p.Infants))
		}
		if len(p.Names) > 0 {
			b.WriteString(`<ol class="names">`)
			for _, name := range p.Names {
				b.WriteString("<li>" + html.EscapeString(name) + "</li>")
			}
			b.WriteString(`</ol>`)
		}
		b.WriteString(`</div>`)
	}

	if p := n.Payment; p != nil {
		b.WriteString(`<div class="note-payment">`)
		span(&b, "date", p.Date)
		span(&b, "description", p.Description)
		span(&b, "submitted-by", p.SubmittedBy)
		b.WriteString(`</div>`)
	}

	return b.String()
}

// Normalized is the fragment when something matched and the collapsed text
// otherwise
func (n *Note) Normalized() string {
	if !n.Matched() {
		return n.Raw
	}
	return n.Fragment()
}

// Text renders the recognized sections on one line for spreadsheets
func (n *Note) Text() string {
	if !n.Matched() {
		return n.Raw
	}

	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	if f := n.Flight; f != nil {
		add(f.Route())
		add(f.TripType)
		add(f.Airline)
		if f.Departure != "" {
			add("Dep " + f.Departure)
		}
	}
	if p := n.Passengers; p != nil {
		counts := "ADT " + strconv.Itoa(p.Adults)
		if p.Children > 0 {
			counts += " CHD " + strconv.Itoa(p.Children)
		}
		if p.Infants > 0 {
			counts += " INF " + strconv.Itoa(p.Infants)
		}
		add(counts)
		add(strings.Join(p.Names, ", "))
	}
	if p := n.Payment; p != nil {
		if p.Date != "" {
			add("Transfer " + p.Date)
		}
		add(p.Description)
		if p.SubmittedBy != "" {
			add("by " + p.SubmittedBy)
		}
	}

	return strings.Join(parts, " | ")
}

func span(b *strings.Builder, class, value string) {
	if value == "" {
		return
	}
	b.WriteString(`<span class="` + class + `">` + html.EscapeString(value) + `</span>`)
}
