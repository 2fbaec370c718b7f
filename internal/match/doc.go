// Package match pairs loosely identified campaigns and drops across
// snapshots.
//
// Upstream identifiers are inconsistent: localized category slugs,
// alternate display names, inventory records without campaign ids. An exact
// identifier match always wins. Otherwise a weighted score is computed and
// compared against a hard floor; below the floor the matcher reports no
// match and callers keep the literal input instead of guessing.
package match
