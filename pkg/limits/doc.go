// Package limits classifies item values against red, yellow and optional
// green thresholds.
//
// Every item with limits has a DEFAULT set; further named sets may be added
// once DEFAULT exists, and an item without the active set falls back to
// DEFAULT. A state change is reported only after the new state has been
// seen for the item's persistence setting in consecutive checks.
//
// The Manager ties item limits to named sets and groups and records runtime
// changes in a Store.
package limits
