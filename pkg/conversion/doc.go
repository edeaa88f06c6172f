// Package conversion turns RAW item values into engineering values and back.
package conversion
