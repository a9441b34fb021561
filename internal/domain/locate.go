package domain

import (
	"strings"

	"github.com/paulmach/orb"
)

// zoneCountries maps common IANA time zone names to country codes.
var zoneCountries = map[string]string{
	"Europe/London":        "GB",
	"Europe/Paris":         "FR",
	"Europe/Berlin":        "DE",
	"Europe/Rome":          "IT",
	"Europe/Madrid":        "ES",
	"Europe/Amsterdam":     "NL",
	"Europe/Brussels":      "BE",
	"Europe/Vienna":        "AT",
	"Europe/Zurich":        "CH",
	"Europe/Stockholm":     "SE",
	"Europe/Oslo":          "NO",
	"Europe/Copenhagen":    "DK",
	"Europe/Helsinki":      "FI",
	"Europe/Warsaw":        "PL",
	"Europe/Prague":        "CZ",
	"Europe/Budapest":      "HU",
	"Europe/Athens":        "GR",
	"Europe/Lisbon":        "PT",
	"Europe/Dublin":        "IE",
	"America/New_York":     "US",
	"America/Los_Angeles":  "US",
	"America/Chicago":      "US",
	"America/Toronto":      "CA",
	"America/Vancouver":    "CA",
	"America/Mexico_City":  "MX",
	"America/Sao_Paulo":    "BR",
	"America/Buenos_Aires": "AR",
	"Asia/Tokyo":           "JP",
	"Asia/Shanghai":        "CN",
	"Asia/Hong_Kong":       "HK",
	"Asia/Seoul":           "KR",
	"Asia/Singapore":       "SG",
	"Asia/Dubai":           "AE",
	"Asia/Kolkata":         "IN",
	"Asia/Bangkok":         "TH",
	"Asia/Jakarta":         "ID",
	"Asia/Manila":          "PH",
	"Asia/Kuala_Lumpur":    "MY",
	"Australia/Sydney":     "AU",
	"Australia/Melbourne":  "AU",
	"Pacific/Auckland":     "NZ",
	"Africa/Cairo":         "EG",
	"Africa/Johannesburg":  "ZA",
	"Africa/Lagos":         "NG",
}

// CountryFromZone resolves a person's zone attribute to a country code.
// The zone may be a two-letter code known to the catalog or a time zone
// name from the built-in table. Returns "" when nothing matches.
func CountryFromZone(zone string, catalog Catalog) string {
	if zone == "" {
		return ""
	}
	if len(zone) == 2 {
		code := strings.ToUpper(zone)
		if _, ok := catalog[code]; ok {
			return code
		}
	}
	return zoneCountries[zone]
}

// CountryFromCoordinates returns the first country, in code order, whose
// bounding box contains the point. Countries without a four-value bounding
// box never match.
func CountryFromCoordinates(lat, lon float64, catalog Catalog) string {
	here := orb.Point{lon, lat}
	for _, code := range catalog.Codes() {
		bound, ok := catalog[code].Bound()
		if ok && bound.Contains(here) {
			return code
		}
	}
	return ""
}
