// Package location provides fallback coordinates for identification requests
// that arrive without client-supplied geolocation.
package location

import (
	"strings"
	"unicode"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DefaultCoordinates is the final fallback (Brasília, DF).
var DefaultCoordinates = Coordinates{Lat: -15.779722, Lon: -47.929722}

// State capital coordinates, keyed by full state name in title case.
var stateCoordinates = map[string]Coordinates{
	// Norte
	"Acre":      {Lat: -9.97499, Lon: -67.8243},    // Rio Branco
	"Amapá":     {Lat: 0.03889, Lon: -51.06639},    // Macapá
	"Amazonas":  {Lat: -3.119028, Lon: -60.021731}, // Manaus
	"Pará":      {Lat: -1.455028, Lon: -48.5025},   // Belém
	"Rondônia":  {Lat: -8.76194, Lon: -63.90389},   // Porto Velho
	"Roraima":   {Lat: 2.82384, Lon: -60.6753},     // Boa Vista
	"Tocantins": {Lat: -10.2128, Lon: -48.3603},    // Palmas

	// Nordeste
	"Alagoas":             {Lat: -9.66583, Lon: -35.73528},  // Maceió
	"Bahia":               {Lat: -12.97194, Lon: -38.50167}, // Salvador
	"Ceará":               {Lat: -3.73194, Lon: -38.52667},  // Fortaleza
	"Maranhão":            {Lat: -2.53073, Lon: -44.3068},   // São Luís
	"Paraíba":             {Lat: -7.11948, Lon: -34.84501},  // João Pessoa
	"Pernambuco":          {Lat: -8.05783, Lon: -34.88289},  // Recife
	"Piauí":               {Lat: -5.09097, Lon: -42.8038},   // Teresina
	"Rio Grande do Norte": {Lat: -5.79444, Lon: -35.20889},  // Natal
	"Sergipe":             {Lat: -10.91667, Lon: -37.05},    // Aracaju

	// Centro-Oeste
	"Distrito Federal":    DefaultCoordinates,               // Brasília
	"Goiás":               {Lat: -16.68689, Lon: -49.26487}, // Goiânia
	"Mato Grosso":         {Lat: -15.6014, Lon: -56.0979},   // Cuiabá
	"Mato Grosso do Sul":  {Lat: -20.4697, Lon: -54.6201},   // Campo Grande

	// Sudeste
	"Espírito Santo": {Lat: -20.31556, Lon: -40.31278}, // Vitória
	"Minas Gerais":   {Lat: -19.91667, Lon: -43.93333}, // Belo Horizonte
	"Rio de Janeiro": {Lat: -22.9068, Lon: -43.1729},
	"São Paulo":      {Lat: -23.55052, Lon: -46.63331},

	// Sul
	"Paraná":            {Lat: -25.4284, Lon: -49.2733},  // Curitiba
	"Rio Grande do Sul": {Lat: -30.0346, Lon: -51.2177},  // Porto Alegre
	"Santa Catarina":    {Lat: -27.5969, Lon: -48.5495},  // Florianópolis
}

// Fallback returns the capital coordinates for the given state name, or the
// default (Brasília) when the name is empty or unrecognized. Matching is
// whitespace- and case-insensitive.
func Fallback(stateName string) Coordinates {
	if stateName == "" {
		return DefaultCoordinates
	}

	if coords, ok := stateCoordinates[titleCase(stateName)]; ok {
		return coords
	}
	return DefaultCoordinates
}

// titleCase normalizes "  são paulo " to "São Paulo". Keeps connective words
// lowercase so "Rio Grande do Sul" round-trips.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w == "do" || w == "da" || w == "de" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
