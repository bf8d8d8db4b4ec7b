package place

// Built-in abbreviation expansions. Trailing-space keys only expand whole
// leading tokens so "stone" is never rewritten.
var defaultAbbreviations = map[string]string{
	"st.":    "saint",
	"st ":    "saint ",
	"co.":    "county",
	"co ":    "county ",
	"mt.":    "mount",
	"mt ":    "mount ",
	"ft.":    "fort",
	"ft ":    "fort ",
	"n.y.":   "new york",
	"n.y":    "new york",
	"nyc":    "new york city",
	"l.a.":   "los angeles",
	"d.c.":   "district of columbia",
	"u.s.a.": "united states",
	"usa":    "united states",
	"u.s.":   "united states",
	"u.k.":   "united kingdom",
	"uk":     "united kingdom",
}

// Built-in historical renames, old name -> current name. The Matcher applies
// these in both directions.
var defaultHistoricalNames = map[string]string{
	// Renamed cities.
	"constantinople": "istanbul",
	"kristiania":     "oslo",
	"petrograd":      "saint petersburg",
	"leningrad":      "saint petersburg",
	"saigon":         "ho chi minh city",
	"bombay":         "mumbai",
	"madras":         "chennai",
	"calcutta":       "kolkata",
	"peking":         "beijing",
	"canton":         "guangzhou",
	"rangoon":        "yangon",
	"batavia":        "jakarta",
	"danzig":         "gdansk",
	"breslau":        "wroclaw",
	"konigsberg":     "kaliningrad",
	"lemberg":        "lviv",
	// Countries and regions.
	"prussia":        "germany",
	"bohemia":        "czech republic",
	"moravia":        "czech republic",
	"austro-hungary": "austria",
	"yugoslavia":     "serbia",
	"czechoslovakia": "czech republic",
	"ussr":           "russia",
	"soviet union":   "russia",
	"rhodesia":       "zimbabwe",
	"burma":          "myanmar",
	"ceylon":         "sri lanka",
	"persia":         "iran",
	"siam":           "thailand",
	"formosa":        "taiwan",
	"east germany":   "germany",
	"west germany":   "germany",
}
