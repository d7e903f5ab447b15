package note

import "regexp"

// Anchor fragments. The accounting system sometimes stores notes with broken
// encodings, so ASCII anchors must survive stray non-ASCII bytes around them.
const (
	// gap sits between the words of a multi-word anchor
	gap = `(?:\s|[^\x00-\x7F])*?`
	// sep follows an anchor: stray non-ASCII bytes, then an optional colon or dash
	sep = `[^\x00-\x7F]*\s*[:：\-]?\s*`

	anyDate = `(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`

	// stop ends a free-text capture at the next known anchor or end of note
	stop = `\s*(?:submit(?:ted)?` + gap + `by|transfer` + gap + `(?:date|desc(?:ription)?|details?)|تاريخ\s*التحويل|بواسطة|\bPNR\b|$)`
)

// Flight patterns, most specific first.
var (
	flightFull = regexp.MustCompile(`(?i)\bFLIGHT\b(?P<ref>[^,]*),\s*` +
		`(?P<from>[^,()]+?)\s+to\s+(?P<to>[^,()]+?)\s*` +
		`\((?P<fromCode>[A-Z]{3})\)\s*\((?P<toCode>[A-Z]{3})\)\s*,\s*` +
		`(?P<trip>[^,]+?)\s*,\s*(?P<airline>[^,]+?)\s*,\s*` +
		`Dep(?:arture)?\.?\s*:?\s*(?P<date>\d{4}-\d{2}-\d{2})(?:[ T](?P<time>\d{1,2}:\d{2}))?`)

	routeCities = regexp.MustCompile(`(?i)(?:^|[,:])\s*(\p{L}[\p{L} .'\-]*?)\s+to\s+(\p{L}[\p{L} .'\-]*?)\s*` +
		`\(([A-Z]{3})\)\s*\(([A-Z]{3})\)`)
	routeWords     = regexp.MustCompile(`(?i)(?:^|[,:])\s*(\p{L}[\p{L} .'\-]*?)\s+to\s+(\p{L}[\p{L} .'\-]*?)\s*(?:,|$)`)
	routeCodePairs = regexp.MustCompile(`\(([A-Z]{3})\)\s*\(([A-Z]{3})\)`)
	routeCodeDash  = regexp.MustCompile(`\b([A-Z]{3})\s*(?:-|/|>|→|–)\s*([A-Z]{3})\b`)

	tripType = regexp.MustCompile(`(?i)\b(one[\s\-]?way|round[\s\-]?trip|return|multi[\s\-]?city)\b`)

	airlineLabel  = regexp.MustCompile(`(?i)\bairline\s*:\s*([^,]+?)\s*(?:,|$)`)
	airlineSuffix = regexp.MustCompile(`(?i)\b((?:\p{L}+\s+){0,2}?(?:airlines?|airways))\b`)

	departureISO = regexp.MustCompile(`(?i)\bDep(?:arture)?\.?\s*:?\s*(\d{4}-\d{2}-\d{2})(?:[ T](\d{1,2}:\d{2}))?`)
	departureDMY = regexp.MustCompile(`(?i)\bDep(?:arture)?\.?\s*:?\s*(\d{1,2})/(\d{1,2})/(\d{4})(?:\s+(\d{1,2}:\d{2}))?`)
)

// Passenger patterns. Each fare class has a primary form ("ADT 2"), a
// reversed form ("2 ADT") and an Arabic fallback.
var (
	adultCount = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bADT\s*[:=x×]?\s*(\d{1,2})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*[x×]?\s*ADT\b`),
		regexp.MustCompile(`(\d{1,2})\s*(?:بالغين|بالغ)`),
	}
	childCount = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bCHD\s*[:=x×]?\s*(\d{1,2})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*[x×]?\s*CHD\b`),
		regexp.MustCompile(`(\d{1,2})\s*(?:أطفال|اطفال|طفل)`),
	}
	infantCount = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bINF\s*[:=x×]?\s*(\d{1,2})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*[x×]?\s*INF\b`),
		regexp.MustCompile(`(\d{1,2})\s*(?:رضيع|رضع)`),
	}

	namesTicketed = regexp.MustCompile(`(\p{L}[\p{L}'\-]*(?:\s+\p{L}[\p{L}'\-]*)*)\s*\(\s*et\.?\s*\d+\s*\)`)
	namesListed   = regexp.MustCompile(`(?i)\b(?:passengers?|pax\s+names?|names?)\s*:\s*(.+?)\s*(?:\b(?:ADT|CHD|INF|PNR|Dep)\b|transfer|submit|$)`)
	namesGDS      = regexp.MustCompile(`\b([A-Z][A-Z'\-]+)/([A-Z][A-Z'\-]*(?:\s[A-Z][A-Z'\-]*)*?)\s*(?:MR|MRS|MS|MSTR|MISS)\b`)
	nameListSplit = regexp.MustCompile(`\s*(?:[,;]|\s&\s)\s*`)
)

// Payment and transfer patterns.
var (
	transferDate = []*regexp.Regexp{
		regexp.MustCompile(`(?i)transfer` + gap + `date` + sep + `(` + anyDate + `)`),
		regexp.MustCompile(`تاريخ\s*التحويل\s*[:\-]?\s*(` + anyDate + `)`),
		regexp.MustCompile(`(?i)transfer` + sep + `(` + anyDate + `)`),
	}
	transferDesc = []*regexp.Regexp{
		regexp.MustCompile(`(?i)transfer` + gap + `(?:desc(?:ription)?|details?|note)` + sep + `(.+?)` + stop),
		regexp.MustCompile(`(?i)(?:وصف|تفاصيل)\s*التحويل\s*[:\-]?\s*(.+?)` + stop),
		regexp.MustCompile(`(?i)\btransfer\b` + sep + `((?:to|from|via)\s+.+?)` + stop),
	}
	submittedBy = []*regexp.Regexp{
		regexp.MustCompile(`(?i)submit(?:ted)?` + gap + `by` + sep + `(.+?)` + stop),
		regexp.MustCompile(`(?i)(?:بواسطة|المرسل)\s*[:\-]?\s*(.+?)` + stop),
	}

	// cp1252/latin-1 debris left by double encoding
	mojibake = regexp.MustCompile(`[\x{80}-\x{24F}\x{2C6}\x{2DC}\x{2018}-\x{201E}\x{2020}-\x{2022}\x{2026}\x{2030}\x{2039}\x{203A}\x{20AC}\x{2122}]+`)
)

// Identifier patterns.
var (
	pnrLabeled = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bPNR\b` + sep + `#?\s*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)\b(?:booking\s*ref(?:erence)?|record\s*locator)\b` + sep + `#?\s*([A-Za-z0-9]+)`),
	}
	bookingID = regexp.MustCompile(`(?i)\bbooking\s*(?:id|no\.?|number|#)\s*[:#\-]?\s*([A-Za-z0-9\-]+)`)
	invoiceNo = regexp.MustCompile(`(?i)\binv(?:oice)?\.?\s*(?:no\.?|number|#)?\s*[:#\-]\s*([A-Za-z0-9\-/]+)`)
)
