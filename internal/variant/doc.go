// Package variant renders fixed-size image variants from a source image, a crop
// rectangle and a photometric parameter set.
//
// Rendering is deterministic except for the noise stage, which draws from a
// random source on every call. RandomAdjustments is the only other place
// randomness enters, and it produces parameters rather than pixels.
package variant
