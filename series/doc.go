// Package series models the bounded sample history that AquaBoard keeps in
// memory and the pure transformations applied to it.
//
// Raw rows arrive from a time-series store as one (time, field, value)
// triple per reading. [Pivot] folds such a row stream into one [Sample] per
// timestamp, [Merge] combines a fresh fetch with the previous [Window] under
// a [Capacity] policy, and the Window methods derive display-ready views:
//
//   - [Window.Combined]: one aligned dataset per field sharing a label axis
//   - [Window.Single]: the dataset for one field
//   - [Window.Table]: formatted rows with two-decimal values and "N/A" gaps
//
// Every type in this package is immutable once built. Accessors that expose
// slices or maps return copies, so a Window can be handed to any number of
// readers without synchronisation.
package series
