package scrape

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func testExtractor() *Extractor {
	return NewExtractor(Config{
		ImageDomain:     "content.deal-drive.com",
		ImageResolution: "fit-1324xauto",
	})
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func specRow(label, valueHTML string) string {
	return `<div class="mui-1d58shw">` +
		`<span class="MuiTypography-body2"><div><div><svg></svg><span>` + label + `</span></div></div></span>` +
		`<span class="MuiTypography-body1">` + valueHTML + `</span>` +
		`</div>`
}

func TestSplitFuelEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw        string
		wantFuel   string
		wantEngine string
	}{
		{"Petrol 2.0 L (254 hp)", "Petrol", "2.0 L (254 hp)"},
		{"Petrol Plug-in Hybrid 2.4 L", "Petrol Plug-in Hybrid", "2.4 L"},
		{"4.6 L", "", "4.6 L"},
		{"  Diesel 3.0 L  ", "Diesel", "3.0 L"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			fuel, engine := SplitFuelEngine(tt.raw)
			require.Equal(t, tt.wantFuel, fuel)
			require.Equal(t, tt.wantEngine, engine)
		})
	}
}

func TestExtractFullDetailPage(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	<span class="p-brand">Jetour</span>
	<span class="p-name">Jetour T2 Luxury</span>
	<data value="154,900">AED 154,900</data>
	<div class="MuiCardContent-root">` +
		specRow("Model", `<span class="p-brand">Jetour</span><span> T2</span>`) +
		specRow("Year", `2026`) +
		specRow("Mileage", `12,500 km`) +
		specRow("Engine", `Petrol 2.0 L (254 hp)`) +
		specRow("Body Type", `<div class="MuiBox-root">SUV</div><div class="MuiBox-root">5-doors</div><div class="MuiBox-root"></div>`) +
		specRow("Body Color", `<div class="swatch"></div><span class="MuiTypography-body2">Pine Green</span>`) +
		specRow("Transmission", `Automatic`) +
		specRow("Previous Owners", `1`) +
		specRow("Regional Specs", `GCC`) +
		specRow("Warranty", `Yes`) + // unknown label, ignored
		`</div>
	<div class="MuiStack-root">
		<img src="https://content.deal-drive.com/thumbs/a1b2c3/fit-288xauto/1.jpg">
		<img src="https://content.deal-drive.com/thumbs/a1b2c3/fit-96xauto/1.jpg">
		<img data-src="https://content.deal-drive.com/thumbs/d4e5f6/fit-288xauto/2.jpg">
		<img src="https://cdn.other.com/thumbs/ffff00/fit-288xauto/3.jpg">
	</div>
	</body></html>`

	rec := testExtractor().Extract(docFrom(t, html), "https://www.lindacars.com/buy-car/jetour-t2")

	require.Equal(t, "https://www.lindacars.com/buy-car/jetour-t2", rec.AdURL)
	require.Equal(t, "Jetour", rec.Make)
	require.Equal(t, "Jetour T2 Luxury", rec.Model)
	require.Equal(t, rec.Model, rec.Description)
	require.Equal(t, "154,900", rec.Price)
	require.Equal(t, "2026", rec.Year)
	require.Equal(t, "12,500 km", rec.Mileage)
	require.Equal(t, "Petrol", rec.Fuel)
	require.Equal(t, "2.0 L (254 hp)", rec.Engine)
	require.Equal(t, "SUV 5-doors", rec.BodyType)
	require.Equal(t, "Pine Green", rec.Color)
	require.Equal(t, "Automatic", rec.Transmission)
	require.Equal(t, "1", rec.Owners)
	require.Equal(t, "GCC", rec.Specs)
	require.Equal(t, "", rec.Trim)

	images := strings.Split(rec.Images, ",")
	require.Equal(t, []string{
		"https://content.deal-drive.com/thumbs/a1b2c3/fit-1324xauto/1.jpg",
		"https://content.deal-drive.com/thumbs/d4e5f6/fit-1324xauto/2.jpg",
	}, images, "gallery must be upgraded, hash-deduplicated, and domain-filtered in order")

	require.True(t, rec.HasIdentity())
	require.False(t, rec.IsEmpty())
}

func TestExtractModelFallsBackToBrandRow(t *testing.T) {
	t.Parallel()

	// No page-level p-name: model is assembled from the Model spec row.
	html := `<html><body><div class="MuiCardContent-root">` +
		specRow("Model", `<span class="p-brand">Jetour</span><span> T2</span>`) +
		`</div></body></html>`

	rec := testExtractor().Extract(docFrom(t, html), "u")
	require.Equal(t, "Jetour", rec.Make)
	require.Equal(t, "Jetour T2", rec.Model)
}

func TestExtractFirstWriteWinsPerField(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="MuiCardContent-root">` +
		specRow("Year", `2024`) +
		specRow("Year", `2019`) +
		specRow("Fuel Type", `Diesel`) +
		specRow("Engine", `Petrol 2.0 L`) + // Fuel already set; Engine still open
		`</div></body></html>`

	rec := testExtractor().Extract(docFrom(t, html), "u")
	require.Equal(t, "2024", rec.Year)
	require.Equal(t, "Diesel", rec.Fuel)
	require.Equal(t, "2.0 L", rec.Engine)
}

func TestExtractYearMileageFallbackScan(t *testing.T) {
	t.Parallel()

	// Rows whose labels went missing: the labeled pass yields nothing, the
	// fallback scan recovers Year and Mileage from the value nodes.
	html := `<html><body><div class="MuiCardContent-root">
		<div class="mui-1d58shw"><span class="MuiTypography-body1">2019</span></div>
		<div class="mui-1d58shw"><span class="MuiTypography-body1">85,000 km</span></div>
		<div class="mui-1d58shw"><span class="MuiTypography-body1">1949</span></div>
	</div></body></html>`

	rec := testExtractor().Extract(docFrom(t, html), "u")
	require.Equal(t, "2019", rec.Year)
	require.Equal(t, "85,000 km", rec.Mileage)
}

func TestExtractYearFallbackRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="MuiCardContent-root">
		<div class="mui-1d58shw"><span class="MuiTypography-body1">1949</span></div>
		<div class="mui-1d58shw"><span class="MuiTypography-body1">2040</span></div>
		<div class="mui-1d58shw"><span class="MuiTypography-body1">2039</span></div>
	</div></body></html>`

	rec := testExtractor().Extract(docFrom(t, html), "u")
	require.Equal(t, "2039", rec.Year)
}

func TestExtractPriceTextFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body><data>187,000</data></body></html>`
	rec := testExtractor().Extract(docFrom(t, html), "u")
	require.Equal(t, "187,000", rec.Price)
}

func TestExtractEmptyDocumentYieldsBlankRecord(t *testing.T) {
	t.Parallel()

	rec := testExtractor().Extract(docFrom(t, "<html><body></body></html>"), "https://x/ad")
	require.Equal(t, "https://x/ad", rec.AdURL)
	require.True(t, rec.IsEmpty())
	require.False(t, rec.HasIdentity())
}
