// Package scrape implements the listing discovery, extraction, worker pool,
// and snapshot reconciliation pipeline.
package scrape

import "strings"

// Status classifies a snapshot row relative to the previous run.
type Status string

// Reconciliation statuses assigned per row per run.
const (
	StatusNew       Status = "NEW"
	StatusUpdated   Status = "UPDATED"
	StatusUnchanged Status = "UNCHANGED"
	StatusRemoved   Status = "REMOVED"
)

// Record holds the normalized fields extracted from one ad page.
// Absent fields are empty strings, never omitted.
type Record struct {
	AdURL               string
	Make                string
	Model               string
	Description         string
	Price               string
	Color               string
	Year                string
	Mileage             string
	Fuel                string
	Engine              string
	Transmission        string
	Drive               string
	Trim                string
	BodyType            string
	Seats               string
	Condition           string
	Owners              string
	Accidents           string
	GeneralCondition    string
	BodyCondition       string
	MechanicalCondition string
	InteriorCondition   string
	Specs               string
	EmissionStandard    string
	EmissionCO2         string
	Images              string
}

// HasIdentity reports whether at least one of the core identity fields was
// extracted. An ad page that loaded but yielded none of them is treated as
// a failed load.
func (r Record) HasIdentity() bool {
	return r.Make != "" || r.Model != "" || r.Price != ""
}

// IsEmpty reports whether every value field is blank. The AdURL is always
// populated, so an empty record marks an ad that exhausted its retries.
func (r Record) IsEmpty() bool {
	for _, v := range r.values() {
		if v != "" {
			return false
		}
	}
	return true
}

// values returns the value fields in column order, excluding AdURL.
func (r Record) values() []string {
	return []string{
		r.Make, r.Model, r.Description, r.Price, r.Color, r.Year,
		r.Mileage, r.Fuel, r.Engine, r.Transmission, r.Drive, r.Trim,
		r.BodyType, r.Seats, r.Condition, r.Owners, r.Accidents,
		r.GeneralCondition, r.BodyCondition, r.MechanicalCondition,
		r.InteriorCondition, r.Specs, r.EmissionStandard, r.EmissionCO2,
		r.Images,
	}
}

// Row is one snapshot entry: a record plus its reconciliation annotations.
type Row struct {
	Record

	ScrapedDate   string
	Status        Status
	ChangeDetails string
	PrevPrice     string
	PrevMileage   string
}

// Snapshot is the full, immutable result of one run date.
type Snapshot struct {
	Date string
	Rows []Row
}

// Summary holds the per-status row counts handed to the notifier.
type Summary struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Total     int `json:"total"`
}

// Summarize counts rows per status.
func (s Snapshot) Summarize() Summary {
	sum := Summary{Total: len(s.Rows)}
	for _, row := range s.Rows {
		switch row.Status {
		case StatusNew:
			sum.New++
		case StatusUpdated:
			sum.Updated++
		case StatusUnchanged:
			sum.Unchanged++
		case StatusRemoved:
			sum.Removed++
		}
	}
	return sum
}

// Columns is the canonical column order of the snapshot artifact.
var Columns = []string{
	"ad_url",
	"Make", "Model", "Description", "Price", "Color", "Year", "Mileage",
	"Fuel", "Engine", "Transmission", "Drive", "Trim", "BodyType", "Seats",
	"Condition", "Owners", "Accidents", "GeneralCondition", "BodyCondition",
	"MechanicalCondition", "InteriorCondition", "Specs", "EmissionStandard",
	"EmissionCO2", "Images",
	"Scraped_Date", "Status", "Change_Details", "Prev_Price", "Prev_Mileage",
}

// Values returns the row's cells in Columns order.
func (r Row) Values() []string {
	cells := append([]string{r.AdURL}, r.Record.values()...)
	return append(cells,
		r.ScrapedDate, string(r.Status), r.ChangeDetails, r.PrevPrice, r.PrevMileage)
}

// RowFromValues rebuilds a row from cells in Columns order. Short rows are
// tolerated; missing trailing cells read as empty.
func RowFromValues(cells []string) Row {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	return Row{
		Record: Record{
			AdURL:               get(0),
			Make:                get(1),
			Model:               get(2),
			Description:         get(3),
			Price:               get(4),
			Color:               get(5),
			Year:                get(6),
			Mileage:             get(7),
			Fuel:                get(8),
			Engine:              get(9),
			Transmission:        get(10),
			Drive:               get(11),
			Trim:                get(12),
			BodyType:            get(13),
			Seats:               get(14),
			Condition:           get(15),
			Owners:              get(16),
			Accidents:           get(17),
			GeneralCondition:    get(18),
			BodyCondition:       get(19),
			MechanicalCondition: get(20),
			InteriorCondition:   get(21),
			Specs:               get(22),
			EmissionStandard:    get(23),
			EmissionCO2:         get(24),
			Images:              get(25),
		},
		ScrapedDate:   get(26),
		Status:        Status(strings.ToUpper(get(27))),
		ChangeDetails: get(28),
		PrevPrice:     get(29),
		PrevMileage:   get(30),
	}
}
