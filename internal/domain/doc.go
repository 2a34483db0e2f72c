// Package domain models environmental-risk estimation for urban zones.
//
// # Inputs
//
// Every estimate starts from an [EnvironmentalSample]:
//
//	NDVI (vegetation index):   unitless greenness proxy, expected in [0, 1].
//	LST (land surface temp.):  degrees Celsius, typically 10–45.
//	Population density:        inhabitants per km², typically 0–10000.
//
// Samples come from a loaded risk layer (GeoJSON polygons carrying
// ndvi_avg/NDVI, lst_avg/LST and pop_den/DENSIDAD) or, when no polygon
// contains the point, from uniform synthetic ranges. See [Sampler].
//
// # Risk score
//
// Each input is normalized to a [0, 1] risk factor:
//
//	vegetation  = 1 - ndvi
//	temperature = (lst - 10) / (45 - 10)
//	density     = min(density, 10000) / 10000
//
// and combined with fixed weights:
//
//	score = round(100 * (0.45*temperature + 0.40*vegetation + 0.15*density))
//
// clamped to [0, 100]. Categories:
//
//	score >= 65        High
//	40 <= score < 65   Moderate
//	score < 40         Low
//
// Out-of-range inputs are used as-is and only the final score is clamped.
// NaN inputs propagate into the score; use [ValidateSample] to reject them.
//
// # Scenario projection
//
// Projections apply a constant annual rate per climate scenario:
//
//	scenario   NDVI loss/yr   LST gain/yr
//	low        0.0008         0.01 °C
//	medium     0.0015         0.02 °C
//	high       0.0030         0.04 °C
//
// Unknown scenario identifiers use the medium rates. Projected NDVI never
// drops below zero; projected LST is unbounded above.
//
// # Clusters
//
// Layers produced by the upstream K-Means job label each zone with a
// cluster: 1 (low priority), 2 (moderate risk), 3 (high priority). Clusters
// map onto the same three categories as the computed score; see
// [CategoryForCluster].
package domain
