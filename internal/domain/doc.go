// Package domain models NOAA Integrated Surface Database (ISD) weather
// observations and the station reference data used to enrich them.
//
// # Data Sources
//
// Observations arrive as raw ISD "mandatory data section" lines, one per
// reading, published continuously by an upstream feeder. Station references
// come from the ISD station history file (isd-history.csv), loaded once at
// startup and held in memory for the life of the process.
//
// # ISD Observation Layout
//
// Fields are positional (1-based, inclusive):
//
//	 5-10  USAF station id      e.g. "010010"
//	11-15  WBAN station id      e.g. "99999"
//	16-23  date YYYYMMDD        e.g. "20200101"
//	66-69  wind speed           m/s scaled by 10, "9999" = missing
//	70     wind speed quality
//	88-92  air temperature      °C scaled by 10 with sign, "+9999" = missing
//	93     air temperature quality
//
// Quality codes:
//
//	Only "1" (passed all quality control checks) is treated as trustworthy.
//	Every other code, including the "9" that accompanies missing values,
//	excludes the reading from min/max aggregation.
//
// # Station Identity
//
// A station is identified by USAF and WBAN concatenated ("010010" + "99999").
// The station history file carries duplicates for relocated stations; the
// last row read wins.
//
// # Aggregation Sentinels
//
// Readings with a quality code other than 1 contribute 9999 to a minimum and
// -9999 to a maximum. A group with no trusted reading for a metric therefore
// reports min=9999 and max=-9999. Consumers must treat those values as
// "no valid reading". See [Aggregate].
package domain
