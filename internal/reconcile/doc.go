// Package reconcile merges repeated, partial snapshots of campaign and drop
// state into one consistent model.
//
// Progress is monotonic: a merge never lowers a drop's progress and never
// un-claims it. A fetch that returns nothing for the selected campaign while
// it is being farmed leaves the previous split in place rather than clearing
// it. Drops seen before but missing from a fetch survive only when they carry
// progress.
//
// Merges are applied as MergeDrop(newer, older): the newer record's fields
// win, and the older record only fills what the newer one lacks.
package reconcile
