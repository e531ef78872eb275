// Package quality reads the school report pages of the portal and merges
// them across reporting periods.
//
// Tables are parsed into rows of Value cells. Period maps are merged newest
// first into trend rows of the form [grade, oldest, ..., newest, delta],
// where a missing class or a non-numeric pair gives н/д. Grids are the unit
// handed to the workbook exporter.
package quality
