package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the deal-drive detail page. One spec row looks like:
//
//	div.mui-1d58shw                          <- one spec row
//	  span.MuiTypography-body2               <- LEFT: label container
//	    div > div > svg + span("Year")       <- label text in last <span>
//	  span.MuiTypography-body1               <- RIGHT: value
//	    "2026"
const (
	selSpecRow    = ".MuiCardContent-root .mui-1d58shw"
	selLabel      = "span.MuiTypography-body2"
	selValue      = "span.MuiTypography-body1"
	selValueBoxes = "div.MuiBox-root"
	selBrand      = "span.p-brand"
	selName       = "span.p-name"
	selPrice      = "data"
	selGallery    = ".MuiStack-root img"
	selAllValues  = ".MuiCardContent-root span.MuiTypography-body1"
)

// valueStrategy selects how the right-hand value of a spec row is read.
type valueStrategy int

const (
	// strategyDirect reads the value node's trimmed text.
	strategyDirect valueStrategy = iota
	// strategyConcat joins the value node's box divs with single spaces
	// ("SUV" + "5-doors" -> "SUV 5-doors").
	strategyConcat
	// strategyNested descends into a nested label-styled span so the color
	// name is read without the swatch markup.
	strategyNested
	// strategySplit splits "Petrol 2.0 L (254 hp)" into Fuel + Engine.
	strategySplit
	// strategyBrand pulls Make from the brand sub-span and keeps the rest
	// of the text as the model suffix.
	strategyBrand
)

// labelRule binds a lowercase label token to its output field and strategy.
type labelRule struct {
	field    string
	strategy valueStrategy
}

// labelTable maps the label text on the left side of a spec row to the
// record field it fills. First write wins for every field.
var labelTable = map[string]labelRule{
	// car identity
	"model":      {strategy: strategyBrand},
	"trim":       {field: "Trim", strategy: strategyDirect},
	"body type":  {field: "BodyType", strategy: strategyConcat},
	"body color": {field: "Color", strategy: strategyNested},
	"colour":     {field: "Color", strategy: strategyDirect},
	"color":      {field: "Color", strategy: strategyDirect},
	// mechanical
	"engine":       {strategy: strategySplit},
	"transmission": {field: "Transmission", strategy: strategyDirect},
	"gearbox":      {field: "Transmission", strategy: strategyDirect},
	"drive":        {field: "Drive", strategy: strategyDirect},
	"fuel type":    {field: "Fuel", strategy: strategyDirect},
	"fuel":         {field: "Fuel", strategy: strategyDirect},
	// year / usage
	"year":       {field: "Year", strategy: strategyDirect},
	"mileage":    {field: "Mileage", strategy: strategyDirect},
	"condition":  {field: "Condition", strategy: strategyDirect},
	"seat count": {field: "Seats", strategy: strategyDirect},
	// history
	"previous owners":      {field: "Owners", strategy: strategyDirect},
	"accidents":            {field: "Accidents", strategy: strategyDirect},
	"general condition":    {field: "GeneralCondition", strategy: strategyDirect},
	"body condition":       {field: "BodyCondition", strategy: strategyDirect},
	"mechanical condition": {field: "MechanicalCondition", strategy: strategyDirect},
	"interior condition":   {field: "InteriorCondition", strategy: strategyDirect},
	// specs
	"regional specs":    {field: "Specs", strategy: strategyDirect},
	"emission standard": {field: "EmissionStandard", strategy: strategyDirect},
	"emission co2":      {field: "EmissionCO2", strategy: strategyDirect},
}

var (
	yearRe       = regexp.MustCompile(`^(19[5-9]\d|20[0-3]\d)$`)
	mileageRe    = regexp.MustCompile(`(?i)km`)
	engineFuelRe = regexp.MustCompile(`(?s)^([A-Za-z][\w\s\-]*?)\s+(\d.*)`)
	imageSizeRe  = regexp.MustCompile(`fit-\d+xauto`)
	imageHashRe  = regexp.MustCompile(`/thumbs/([a-f0-9]+)/`)
)

// auxiliary spec keys produced by the brand strategy and consumed when the
// dedicated page-level Make/Model nodes are missing.
const (
	keyMakeFromRow = "MakeFromRow"
	keyModelSuffix = "ModelSuffix"
)

// Extractor reads a normalized Record out of a rendered detail document.
// Every lookup failure degrades to a blank field; Extract never fails.
type Extractor struct {
	imageDomain     string
	imageResolution string
}

// NewExtractor builds an extractor from the scrape configuration.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{
		imageDomain:     cfg.ImageDomain,
		imageResolution: cfg.ImageResolution,
	}
}

// SplitFuelEngine splits a combined engine value into fuel type and engine
// size: "Petrol 2.0 L (254 hp)" -> ("Petrol", "2.0 L (254 hp)"). The fuel
// phrase may contain spaces and hyphens ("Petrol Plug-in Hybrid 2.4 L").
// When no leading alphabetic phrase exists the whole value stays on the
// engine side and fuel is blank.
func SplitFuelEngine(raw string) (fuel, engine string) {
	m := engineFuelRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", strings.TrimSpace(raw)
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// Extract reads all labeled spec rows, the image gallery, and the dedicated
// Make/Model/Price nodes from the document.
func (e *Extractor) Extract(doc *goquery.Document, adURL string) Record {
	specs := e.readSpecRows(doc)
	e.fillYearMileageFallback(doc, specs)

	// Dedicated page nodes take precedence over the generic label table.
	brand := text(doc.Find(selBrand).First())
	if brand == "" {
		brand = specs[keyMakeFromRow]
	}

	model := text(doc.Find(selName).First())
	if model == "" {
		suffix := specs[keyModelSuffix]
		switch {
		case brand != "" && suffix != "":
			model = strings.TrimSpace(brand + " " + suffix)
		case suffix != "":
			model = suffix
		default:
			model = brand
		}
	}

	price := ""
	if node := doc.Find(selPrice).First(); node.Length() > 0 {
		if v, ok := node.Attr("value"); ok && strings.TrimSpace(v) != "" {
			price = strings.TrimSpace(v)
		} else {
			price = text(node)
		}
	}

	return Record{
		AdURL:               adURL,
		Make:                brand,
		Model:               model,
		Description:         model,
		Price:               price,
		Color:               specs["Color"],
		Year:                specs["Year"],
		Mileage:             specs["Mileage"],
		Fuel:                specs["Fuel"],
		Engine:              specs["Engine"],
		Transmission:        specs["Transmission"],
		Drive:               specs["Drive"],
		Trim:                specs["Trim"],
		BodyType:            specs["BodyType"],
		Seats:               specs["Seats"],
		Condition:           specs["Condition"],
		Owners:              specs["Owners"],
		Accidents:           specs["Accidents"],
		GeneralCondition:    specs["GeneralCondition"],
		BodyCondition:       specs["BodyCondition"],
		MechanicalCondition: specs["MechanicalCondition"],
		InteriorCondition:   specs["InteriorCondition"],
		Specs:               specs["Specs"],
		EmissionStandard:    specs["EmissionStandard"],
		EmissionCO2:         specs["EmissionCO2"],
		Images:              e.readImages(doc),
	}
}

// readSpecRows walks every spec row and reads label (left) plus value
// (right) according to the label's strategy.
func (e *Extractor) readSpecRows(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)

	doc.Find(selSpecRow).Each(func(_ int, row *goquery.Selection) {
		label := rowLabel(row)
		if label == "" {
			return
		}
		rule, ok := labelTable[label]
		if !ok {
			return
		}

		value := row.Find(selValue).First()
		if value.Length() == 0 {
			return
		}

		switch rule.strategy {
		case strategyBrand:
			brand := text(value.Find(selBrand).First())
			full := text(value)
			suffix := strings.TrimSpace(strings.ReplaceAll(full, brand, ""))
			if brand != "" {
				setOnce(specs, keyMakeFromRow, brand)
			}
			if suffix != "" {
				setOnce(specs, keyModelSuffix, suffix)
			}

		case strategySplit:
			fuel, engine := SplitFuelEngine(text(value))
			if fuel != "" {
				setOnce(specs, "Fuel", fuel)
			}
			if engine != "" {
				setOnce(specs, "Engine", engine)
			}

		case strategyNested:
			v := text(value.Find(selLabel).First())
			if v == "" {
				v = text(value)
			}
			setOnce(specs, rule.field, v)

		case strategyConcat:
			var parts []string
			value.Find(selValueBoxes).Each(func(_ int, box *goquery.Selection) {
				if t := text(box); t != "" {
					parts = append(parts, t)
				}
			})
			v := strings.Join(parts, " ")
			if v == "" {
				v = text(value)
			}
			setOnce(specs, rule.field, v)

		default:
			setOnce(specs, rule.field, text(value))
		}
	})

	return specs
}

// rowLabel reads the left-hand label of a spec row. The label container
// usually wraps an SVG icon; the text lives in the last inner span.
func rowLabel(row *goquery.Selection) string {
	labelEl := row.Find(selLabel).First()
	if labelEl.Length() == 0 {
		return ""
	}
	spans := labelEl.Find("span")
	if spans.Length() > 0 {
		return strings.ToLower(text(spans.Last()))
	}
	return strings.ToLower(text(labelEl))
}

// fillYearMileageFallback pattern-scans every value node when the labeled
// pass missed Year or Mileage. This recovers data on pages where the
// label/value association breaks.
func (e *Extractor) fillYearMileageFallback(doc *goquery.Document, specs map[string]string) {
	_, hasYear := specs["Year"]
	_, hasMileage := specs["Mileage"]
	if hasYear && hasMileage {
		return
	}

	doc.Find(selAllValues).EachWithBreak(func(_ int, span *goquery.Selection) bool {
		t := text(span)
		if t == "" {
			return true
		}
		if !hasYear && yearRe.MatchString(t) {
			specs["Year"] = t
			hasYear = true
		} else if !hasMileage && mileageRe.MatchString(t) {
			specs["Mileage"] = t
			hasMileage = true
		}
		return !(hasYear && hasMileage)
	})
}

// readImages collects gallery images from the content domain, upgrades each
// URL to the configured max-resolution variant, and deduplicates by the
// content-hash fragment in the path (full URL when no fragment is present).
// First-appearance order is preserved.
func (e *Extractor) readImages(doc *goquery.Document) string {
	var images []string
	seen := make(map[string]struct{})

	doc.Find(selGallery).Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = img.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || !strings.Contains(src, e.imageDomain) {
			return
		}

		full := imageSizeRe.ReplaceAllString(src, e.imageResolution)
		key := full
		if m := imageHashRe.FindStringSubmatch(full); m != nil {
			key = m[1]
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		images = append(images, full)
	})

	return strings.Join(images, ",")
}

func setOnce(specs map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := specs[key]; !ok {
		specs[key] = value
	}
}

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
