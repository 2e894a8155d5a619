// Package presenter turns the immutable dataset into the single-year view shown
// by the page: one point per country (x = mean temperature, y = mean
// uncertainty, coloured by continent) with a histogram of x and per-continent
// violins of y as marginals.
//
// Present is a pure function of (year, dataset). It never fails; a year outside
// the observed range yields an empty view whose Notice explains why.
package presenter
