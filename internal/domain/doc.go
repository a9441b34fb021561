// Package domain models the "been map" card: a world map whose countries
// are colored by visit status.
//
// # Catalog
//
// The geometry catalog maps a short country code (ISO 3166-1 alpha-2 in
// practice) to a display name and an outline. Outlines are SVG path data
// ("M 150,80 L 280,80 ... Z") drawn in an 800x500 view box and are treated
// as opaque by everything except the rasterizer. The catalog is fetched
// once per card from a static JSON resource shaped as
//
//	{"countries": {"US": {"name": "United States", "path": "M ..."}}}
//
// and falls back to an embedded table of about seventy countries when the
// fetch fails for any reason. See [LoadCatalog] and [FallbackCatalog].
//
// # Card configuration
//
// The host supplies a card configuration with every field optional.
// [NormalizeConfig] fills the documented defaults; zero values (empty
// strings, 0) count as unset.
//
// # Host state
//
// The host exposes named entities. The card reads one sensor entity
// (sensor.been_map by default) and its attributes:
//
//	visited_countries  list of codes; absent falls back to manual_countries
//	current_country    code or null
//	visited_color      overrides the configured color until the next config change
//	current_color      idem
//	unvisited_color    idem
//
// # Status precedence
//
// A country is "current" when it equals the current country, else
// "visited" when listed in the visited set, else "unvisited". Current wins
// over visited, so a country that is both renders with current styling.
package domain
