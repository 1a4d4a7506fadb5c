// Package editlog records every insert and delete applied to a virtual
// buffer as an immutable, version-tagged entry, and tracks which versions
// live iterators still depend on.
//
// The log supports binary search by version so a stale iterator can find
// the edits it missed in O(log n), and prefix pruning below the low-water
// mark (the oldest version any live iterator holds). With no live
// iterators the log retains edits indefinitely; callers wanting undo
// support depend on that.
package editlog
