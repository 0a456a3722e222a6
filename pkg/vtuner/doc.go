// Package vtuner holds the wire shapes of the vTuner directory protocol as
// spoken by Yamaha receivers:
//   - The fixed request paths the device firmware has baked in
//   - The ListOfItems response document with its Dir and Station entries
//   - The 1-based start/howmany pagination window, defaulting to {1, 8}
//
// The shapes reproduce the real service's quirks verbatim, including the
// literal DirCount placeholder at the head of root listings.
package vtuner
